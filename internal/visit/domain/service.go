package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
)

// Service manages visits. Technicians holding service.record may update and
// add records to visits assigned to them; service.manage covers every visit.
type Service interface {
	List(ctx context.Context, actor teamdomain.Membership, req ListRequest) ([]VisitResponse, error)
	Get(ctx context.Context, actor teamdomain.Membership, id string) (*VisitDetail, error)
	Create(ctx context.Context, actor teamdomain.Membership, req CreateRequest) (*VisitResponse, error)
	Update(ctx context.Context, actor teamdomain.Membership, id string, req UpdateRequest) (*VisitResponse, error)
	AddWaterTest(ctx context.Context, actor teamdomain.Membership, visitID string, req WaterTestRequest) (*WaterTest, error)
	AddChemical(ctx context.Context, actor teamdomain.Membership, visitID string, req ChemicalRequest) (*ChemicalAddition, error)
	AddMaintenanceTask(ctx context.Context, actor teamdomain.Membership, visitID string, req MaintenanceRequest) (*MaintenanceTask, error)
}

// ListRequest carries raw query values; Date is YYYY-MM-DD.
type ListRequest struct {
	PropertyID string
	UnitID     string
	Date       string
	Status     string
}

// CreateRequest defaults Status to scheduled.
type CreateRequest struct {
	PropertyID   string
	UnitID       *string
	TechnicianID *string
	ServiceDate  string
	Status       string
	Notes        *string
}

// UpdateRequest applies non-nil fields. An empty UnitID or TechnicianID
// clears the assignment.
type UpdateRequest struct {
	UnitID       *string
	TechnicianID *string
	ServiceDate  *string
	Status       *string
	Notes        *string
}

type WaterTestRequest struct {
	PH          *float64
	Chlorine    *float64
	Bromine     *float64
	Alkalinity  *float64
	Calcium     *float64
	Cyanuric    *float64
	Salt        *float64
	Turbidity   *float64
	Temperature *float64
	Notes       *string
}

type ChemicalRequest struct {
	ChemicalType  string
	Quantity      float64
	UnitOfMeasure string
	Cost          *float64
}

type MaintenanceRequest struct {
	TaskType  string
	Completed bool
	Notes     *string
}

type VisitResponse struct {
	ID           string          `json:"id"`
	PropertyID   string          `json:"property_id"`
	UnitID       *string         `json:"unit_id"`
	TechnicianID *string         `json:"technician_id"`
	ServiceDate  string          `json:"service_date"`
	Status       Status          `json:"status"`
	Notes        *string         `json:"notes"`
	Property     PropertySummary `json:"property"`
	Unit         *UnitSummary    `json:"unit"`
	Technician   *Technician     `json:"technician"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type PropertySummary struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
}

type UnitSummary struct {
	Name string `json:"name"`
}

type Technician struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type VisitDetail struct {
	VisitResponse
	WaterTests       []WaterTest        `json:"water_tests"`
	Chemicals        []ChemicalAddition `json:"chemicals"`
	MaintenanceTasks []MaintenanceTask  `json:"maintenance_tasks"`
}
