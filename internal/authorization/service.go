package authorization

import (
	"context"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
)

type Service interface {
	// Authorize checks that actor may perform action on object inside the
	// actor's company.
	Authorize(ctx context.Context, actor teamdomain.Membership, object string, action string) error
	// Permissions lists the actions granted to role.
	Permissions(role teamdomain.Role) ([]string, error)
}
