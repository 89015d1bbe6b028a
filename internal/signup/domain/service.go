package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
)

type Service interface {
	// Signup registers an identity with an unaffiliated profile and opens a
	// session for it.
	Signup(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type Result struct {
	RawToken  string
	ExpiresAt time.Time
	Profile   *teamdomain.Profile
}
