package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Resolver maps an authenticated identity to its company membership.
type Resolver interface {
	Resolve(ctx context.Context, userID snowflake.ID) (*Membership, error)
}

type Service interface {
	Resolver
	// EnsureProfile creates the unaffiliated profile for a new identity.
	EnsureProfile(ctx context.Context, tx *gorm.DB, userID snowflake.ID, email string) (*Profile, error)
	GetProfile(ctx context.Context, userID snowflake.ID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID snowflake.ID, req UpdateProfileRequest) (*Profile, error)
	ListMembers(ctx context.Context, actor Membership) ([]MemberResponse, error)
	UpdateRole(ctx context.Context, actor Membership, memberID string, role string) error
	RemoveMember(ctx context.Context, actor Membership, memberID string) error
}

type UpdateProfileRequest struct {
	FirstName *string
	LastName  *string
}

type MemberResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
