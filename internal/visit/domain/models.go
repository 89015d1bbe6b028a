// Package domain contains service visits and the records a technician
// captures on site.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Visit is one service call at a property, optionally narrowed to a unit.
// ServiceDate is stored as UTC midnight of the calendar day.
type Visit struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID    snowflake.ID  `gorm:"column:company_id;not null;index:ix_service_visits_company_date,priority:1" json:"company_id"`
	PropertyID   snowflake.ID  `gorm:"column:property_id;not null;index" json:"property_id"`
	UnitID       *snowflake.ID `gorm:"column:unit_id" json:"unit_id"`
	TechnicianID *snowflake.ID `gorm:"column:technician_id;index" json:"technician_id"`
	ServiceDate  time.Time     `gorm:"column:service_date;not null;index:ix_service_visits_company_date,priority:2" json:"service_date"`
	Status       Status        `gorm:"type:text;not null" json:"status"`
	Notes        *string       `gorm:"type:text" json:"notes"`
	CreatedBy    *snowflake.ID `gorm:"column:created_by" json:"created_by"`
	UpdatedBy    *snowflake.ID `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Visit) TableName() string { return "service_visits" }

type WaterTest struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	VisitID     snowflake.ID  `gorm:"column:visit_id;not null;index" json:"visit_id"`
	CompanyID   snowflake.ID  `gorm:"column:company_id;not null" json:"company_id"`
	PH          *float64      `gorm:"column:ph" json:"ph"`
	Chlorine    *float64      `gorm:"column:chlorine" json:"chlorine"`
	Bromine     *float64      `gorm:"column:bromine" json:"bromine"`
	Alkalinity  *float64      `gorm:"column:alkalinity" json:"alkalinity"`
	Calcium     *float64      `gorm:"column:calcium" json:"calcium"`
	Cyanuric    *float64      `gorm:"column:cyanuric" json:"cyanuric"`
	Salt        *float64      `gorm:"column:salt" json:"salt"`
	Turbidity   *float64      `gorm:"column:turbidity" json:"turbidity"`
	Temperature *float64      `gorm:"column:temperature" json:"temperature"`
	Notes       *string       `gorm:"type:text" json:"notes"`
	RecordedBy  *snowflake.ID `gorm:"column:recorded_by" json:"recorded_by"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (WaterTest) TableName() string { return "water_tests" }

type ChemicalAddition struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	VisitID       snowflake.ID  `gorm:"column:visit_id;not null;index" json:"visit_id"`
	CompanyID     snowflake.ID  `gorm:"column:company_id;not null" json:"company_id"`
	ChemicalType  string        `gorm:"column:chemical_type;type:text;not null" json:"chemical_type"`
	Quantity      float64       `gorm:"not null" json:"quantity"`
	UnitOfMeasure string        `gorm:"column:unit_of_measure;type:text;not null" json:"unit_of_measure"`
	Cost          *float64      `gorm:"column:cost" json:"cost"`
	RecordedBy    *snowflake.ID `gorm:"column:recorded_by" json:"recorded_by"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ChemicalAddition) TableName() string { return "chemical_additions" }

type MaintenanceTask struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	VisitID    snowflake.ID  `gorm:"column:visit_id;not null;index" json:"visit_id"`
	CompanyID  snowflake.ID  `gorm:"column:company_id;not null" json:"company_id"`
	TaskType   string        `gorm:"column:task_type;type:text;not null" json:"task_type"`
	Completed  bool          `gorm:"not null" json:"completed"`
	Notes      *string       `gorm:"type:text" json:"notes"`
	RecordedBy *snowflake.ID `gorm:"column:recorded_by" json:"recorded_by"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (MaintenanceTask) TableName() string { return "maintenance_tasks" }

// VisitRow is a visit joined with the names shown in lists.
type VisitRow struct {
	Visit
	PropertyName        string
	PropertyAddress     *string
	UnitName            *string
	TechnicianFirstName *string
	TechnicianLastName  *string
	TechnicianEmail     *string
}

// ListFilter narrows a company's visits. Zero fields do not filter.
type ListFilter struct {
	PropertyID snowflake.ID
	UnitID     snowflake.ID
	Date       *time.Time
	Status     Status
	Limit      int
}
