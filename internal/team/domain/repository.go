package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProfile(ctx context.Context, profile *Profile) error
	FindProfile(ctx context.Context, id snowflake.ID) (*Profile, error)
	FindProfilesByIDs(ctx context.Context, ids []snowflake.ID) ([]Profile, error)
	ListMembers(ctx context.Context, companyID snowflake.ID) ([]Member, error)
	// LockCompany serializes role mutations within one company for the
	// rest of the transaction.
	LockCompany(ctx context.Context, companyID snowflake.ID) error
	// UpdateRoleGuarded changes a member's role unless that would leave the
	// company without an owner. It reports whether a row changed.
	UpdateRoleGuarded(ctx context.Context, in RoleUpdate) (bool, error)
	// DetachGuarded clears a member's company unless that would leave the
	// company without an owner. It reports whether a row changed.
	DetachGuarded(ctx context.Context, in Detach) (bool, error)
	UpdateName(ctx context.Context, id snowflake.ID, firstName, lastName string, at time.Time) error
}

type RoleUpdate struct {
	MemberID  snowflake.ID
	CompanyID snowflake.ID
	Role      Role
	UpdatedBy snowflake.ID
	At        time.Time
}

type Detach struct {
	MemberID  snowflake.ID
	CompanyID snowflake.ID
	UpdatedBy snowflake.ID
	At        time.Time
}
