// Package domain contains team membership types.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Profile is a user's membership record. A nil CompanyID means unaffiliated
// and Role is then meaningless.
type Profile struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email     string        `gorm:"type:text;not null;uniqueIndex" json:"email"`
	FirstName string        `gorm:"column:first_name;type:text" json:"first_name"`
	LastName  string        `gorm:"column:last_name;type:text" json:"last_name"`
	Role      *Role         `gorm:"column:role;type:text" json:"role"`
	CompanyID *snowflake.ID `gorm:"column:company_id;index" json:"company_id"`
	CreatedBy *snowflake.ID `gorm:"column:created_by" json:"created_by"`
	UpdatedBy *snowflake.ID `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }

// DisplayName joins first and last name, falling back to the email.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName)); name != "" {
		return name
	}
	return p.Email
}

// Membership is the resolved caller: who they are, which company they act
// in and with what role.
type Membership struct {
	UserID    snowflake.ID
	Email     string
	CompanyID snowflake.ID
	Role      Role
}

func (m Membership) CanManageTeam() bool {
	return CanManageTeam(m.Role)
}

// Member is a row of the team listing.
type Member struct {
	ID        snowflake.ID
	Email     string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
}
