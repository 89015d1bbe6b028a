package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, visit *Visit) error
	Update(ctx context.Context, visit *Visit) error
	FindByID(ctx context.Context, companyID, id snowflake.ID) (*Visit, error)
	FindRow(ctx context.Context, companyID, id snowflake.ID) (*VisitRow, error)
	// List orders by service date then creation time, newest first.
	List(ctx context.Context, companyID snowflake.ID, filter ListFilter) ([]VisitRow, error)
	CreateWaterTest(ctx context.Context, test *WaterTest) error
	CreateChemical(ctx context.Context, chemical *ChemicalAddition) error
	CreateMaintenanceTask(ctx context.Context, task *MaintenanceTask) error
	ListWaterTests(ctx context.Context, visitID snowflake.ID) ([]WaterTest, error)
	ListChemicals(ctx context.Context, visitID snowflake.ID) ([]ChemicalAddition, error)
	ListMaintenanceTasks(ctx context.Context, visitID snowflake.ID) ([]MaintenanceTask, error)
}
