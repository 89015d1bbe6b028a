// Package domain contains the invitation lifecycle types.
package domain

import (
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
)

type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateExpired  State = "expired"
)

// Invitation grants one email the right to join one company at one role
// until ExpiresAt. Token is a single-use capability.
type Invitation struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID    `gorm:"column:company_id;not null;index:ix_invitations_company_email,priority:1" json:"company_id"`
	Email      string          `gorm:"column:email;type:text;not null;index:ix_invitations_company_email,priority:2" json:"email"`
	Role       teamdomain.Role `gorm:"column:role;type:text;not null" json:"role"`
	Token      string          `gorm:"column:token;type:text;not null;uniqueIndex" json:"-"`
	InvitedBy  snowflake.ID    `gorm:"column:invited_by;not null" json:"invited_by"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	ExpiresAt  time.Time       `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt *time.Time      `gorm:"column:accepted_at" json:"accepted_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// StateAt reports the lifecycle state at now. Expiry is derived, never
// stored.
func (i Invitation) StateAt(now time.Time) State {
	if i.AcceptedAt != nil {
		return StateAccepted
	}
	if !now.Before(i.ExpiresAt) {
		return StateExpired
	}
	return StatePending
}

// Notice carries what the notifier needs to tell an invitee.
type Notice struct {
	InvitationID snowflake.ID
	Email        string
	Role         teamdomain.Role
	Token        string
	CompanyName  string
	InviterName  string
}
