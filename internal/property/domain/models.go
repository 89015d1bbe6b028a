// Package domain contains the serviced properties and their bodies of water.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type UnitType string

const (
	UnitTypePool         UnitType = "pool"
	UnitTypeSpa          UnitType = "spa"
	UnitTypeSplashPad    UnitType = "splash_pad"
	UnitTypeWaterFeature UnitType = "water_feature"
)

type WaterType string

const (
	WaterTypeChlorine  WaterType = "chlorine"
	WaterTypeSaltwater WaterType = "saltwater"
	WaterTypeBromine   WaterType = "bromine"
	WaterTypeMineral   WaterType = "mineral"
)

func ParseUnitType(raw string) (UnitType, error) {
	t := UnitType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case UnitTypePool, UnitTypeSpa, UnitTypeSplashPad, UnitTypeWaterFeature:
		return t, nil
	}
	return "", ErrInvalidUnitType
}

func ParseWaterType(raw string) (WaterType, error) {
	t := WaterType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case WaterTypeChlorine, WaterTypeSaltwater, WaterTypeBromine, WaterTypeMineral:
		return t, nil
	}
	return "", ErrInvalidWaterType
}

// Property is a serviced site. Sites with HasIndividualUnits track each
// pool or spa as a Unit.
type Property struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID          snowflake.ID  `gorm:"column:company_id;not null;index:ix_properties_company_created,priority:1" json:"company_id"`
	Name               string        `gorm:"type:text;not null" json:"name"`
	Address            *string       `gorm:"type:text" json:"address"`
	HasIndividualUnits bool          `gorm:"column:has_individual_units;not null" json:"has_individual_units"`
	Timezone           string        `gorm:"type:text;not null" json:"timezone"`
	CreatedBy          *snowflake.ID `gorm:"column:created_by" json:"created_by"`
	UpdatedBy          *snowflake.ID `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt          time.Time     `gorm:"not null;index:ix_properties_company_created,priority:2" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

type Unit struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	PropertyID   snowflake.ID `gorm:"column:property_id;not null;index" json:"property_id"`
	CompanyID    snowflake.ID `gorm:"column:company_id;not null;index" json:"company_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	UnitType     UnitType     `gorm:"column:unit_type;type:text;not null" json:"unit_type"`
	WaterType    WaterType    `gorm:"column:water_type;type:text;not null" json:"water_type"`
	VolumeLitres *float64     `gorm:"column:volume_litres" json:"volume_litres"`
	IsActive     bool         `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Unit) TableName() string { return "units" }
