package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SlugTaken(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, company *Company) error
	FindByID(ctx context.Context, id snowflake.ID) (*Company, error)
	Update(ctx context.Context, company *Company) error
	// ClaimOwnership makes an unaffiliated profile the company's owner.
	// It reports false when the profile is missing or already affiliated.
	ClaimOwnership(ctx context.Context, profileID, companyID snowflake.ID, at time.Time) (bool, error)
}
