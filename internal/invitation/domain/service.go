package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, actor teamdomain.Membership, req CreateRequest) (*CreateResponse, error)
	ListPending(ctx context.Context, actor teamdomain.Membership) ([]PendingInvitation, error)
	// Inspect validates a token without consuming it.
	Inspect(ctx context.Context, token string) (*Invitation, error)
	Accept(ctx context.Context, token string, userID snowflake.ID) error
	Delete(ctx context.Context, actor teamdomain.Membership, id string) error
}

// Notifier tells invitees about their invitation. Implementations must not
// block the caller and must absorb delivery failures.
type Notifier interface {
	InvitationCreated(ctx context.Context, notice Notice)
}

type CreateRequest struct {
	Email string
	Role  string
}

type CreateResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      teamdomain.Role `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Inviter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PendingInvitation struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      teamdomain.Role `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	InvitedBy *Inviter        `json:"invited_by"`
}
