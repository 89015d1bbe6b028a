// Package domain contains the audit trail behind the activity feed.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Categories accepted by the activity feed filter.
const (
	CategoryTeam     = "team"
	CategoryCompany  = "company"
	CategoryProperty = "property"
	CategoryService  = "service"
)

// Audited actions.
const (
	ActionInvitationCreated = "team.invitation.created"
	ActionInvitationAccept  = "team.invitation.accepted"
	ActionInvitationDeleted = "team.invitation.deleted"
	ActionMemberRoleUpdated = "team.member.role_updated"
	ActionMemberRemoved     = "team.member.removed"
	ActionCompanyCreated    = "company.company.created"
	ActionCompanyUpdated    = "company.company.updated"
	ActionPropertyCreated   = "property.property.created"
	ActionPropertyUpdated   = "property.property.updated"
	ActionUnitCreated       = "property.unit.created"
	ActionVisitCreated      = "service.visit.created"
	ActionVisitUpdated      = "service.visit.updated"
	ActionWaterTestRecorded = "service.water_test.recorded"
	ActionChemicalAdded     = "service.chemical.added"
	ActionMaintenanceAdded  = "service.maintenance.added"
)

// AuditLog is one immutable row of audit_logs.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID  *snowflake.ID     `gorm:"column:company_id;index:ix_audit_logs_company_created,priority:1" json:"company_id"`
	ActorType  string            `gorm:"column:actor_type;type:text;not null" json:"actor_type"`
	ActorID    *snowflake.ID     `gorm:"column:actor_id" json:"actor_id"`
	Action     string            `gorm:"column:action;type:text;not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"column:target_id;type:text" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index:ix_audit_logs_company_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers record. EntityName is the human label the feed
// shows for the target.
type Entry struct {
	CompanyID  snowflake.ID
	ActorID    *snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	EntityName string
	Metadata   map[string]any
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	CompanyID snowflake.ID
	Category  string
	Cursor    *AuditCursor
	Limit     int
}

// ActivityRow is an audit row joined with its actor profile.
type ActivityRow struct {
	AuditLog
	ActorEmail     *string
	ActorFirstName *string
	ActorLastName  *string
}
