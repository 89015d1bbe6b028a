package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads are scoped to one company; a row owned by another company
// is reported as not found.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CompanyTimezone(ctx context.Context, companyID snowflake.ID) (string, error)
	Create(ctx context.Context, property *Property) error
	Update(ctx context.Context, property *Property) error
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*Property, error)
	List(ctx context.Context, companyID snowflake.ID) ([]Property, error)
	CreateUnit(ctx context.Context, unit *Unit) error
	FindUnit(ctx context.Context, companyID, id snowflake.ID) (*Unit, error)
	ListUnits(ctx context.Context, companyID snowflake.ID, propertyIDs []snowflake.ID) ([]Unit, error)
}
