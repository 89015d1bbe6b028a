package authorization

import (
	"errors"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
)

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")

	// ErrForbidden is the team sentinel so callers map one error to 403.
	ErrForbidden = teamdomain.ErrForbidden
)
