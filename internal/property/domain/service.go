package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
)

type Service interface {
	List(ctx context.Context, actor teamdomain.Membership) ([]PropertyResponse, error)
	Get(ctx context.Context, actor teamdomain.Membership, id string) (*PropertyResponse, error)
	Create(ctx context.Context, actor teamdomain.Membership, req CreateRequest) (*PropertyResponse, error)
	// Update applies the non-nil fields of req. A blank Address clears it.
	Update(ctx context.Context, actor teamdomain.Membership, id string, req UpdateRequest) (*PropertyResponse, error)
	AddUnit(ctx context.Context, actor teamdomain.Membership, propertyID string, req UnitRequest) (*UnitResponse, error)
}

// CreateRequest leaves Timezone blank to inherit the company's timezone.
type CreateRequest struct {
	Name               string
	Address            *string
	HasIndividualUnits bool
	Timezone           string
}

type UpdateRequest struct {
	Name               *string
	Address            *string
	HasIndividualUnits *bool
	Timezone           *string
}

// UnitRequest defaults IsActive to true.
type UnitRequest struct {
	Name         string
	UnitType     string
	WaterType    string
	VolumeLitres *float64
	IsActive     *bool
}

type PropertyResponse struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Address            *string        `json:"address"`
	HasIndividualUnits bool           `json:"has_individual_units"`
	Timezone           string         `json:"timezone"`
	Units              []UnitResponse `json:"units"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type UnitResponse struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	Name         string    `json:"name"`
	UnitType     UnitType  `json:"unit_type"`
	WaterType    WaterType `json:"water_type"`
	VolumeLitres *float64  `json:"volume_litres"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
