package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LockPair serializes writers for one (company, email) pair until the
	// transaction ends. It is a no-op where the database cannot do it.
	LockPair(ctx context.Context, companyID snowflake.ID, email string) error
	// InsertIfAbsent stores inv unless the email already has a profile or
	// the company already has an active invitation for it.
	InsertIfAbsent(ctx context.Context, inv *Invitation) (bool, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Invitation, error)
	FindByToken(ctx context.Context, token string) (*Invitation, error)
	ListPending(ctx context.Context, companyID snowflake.ID, now time.Time) ([]Invitation, error)
	// MarkAccepted stamps accepted_at only while the invitation is still
	// consumable at `at`.
	MarkAccepted(ctx context.Context, id snowflake.ID, at time.Time) (bool, error)
	// LinkProfile joins an unaffiliated profile to the invitation's company.
	LinkProfile(ctx context.Context, in LinkProfile) (bool, error)
	DeletePending(ctx context.Context, id, companyID snowflake.ID) (bool, error)
	CompanyName(ctx context.Context, companyID snowflake.ID) (string, error)
}

type LinkProfile struct {
	UserID    snowflake.ID
	CompanyID snowflake.ID
	Role      teamdomain.Role
	InvitedBy snowflake.ID
	At        time.Time
}
