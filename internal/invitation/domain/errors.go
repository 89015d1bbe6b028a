package domain

import "errors"

var (
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidInvitationID = errors.New("invalid_invitation_id")
	ErrEmailRegistered     = errors.New("email_already_registered")
	ErrAlreadyInvited      = errors.New("invitation_already_pending")
	ErrInviteInProgress    = errors.New("invitation_in_progress")
	ErrRateLimited         = errors.New("invitation_rate_limited")
	ErrInvitationNotFound  = errors.New("invitation_not_found")
	ErrInvalidInvitation   = errors.New("invalid_invitation")
	ErrAlreadyAccepted     = errors.New("invitation_already_accepted")
	ErrExpired             = errors.New("invitation_expired")
	ErrEmailMismatch       = errors.New("email_mismatch")
	ErrAlreadyInCompany    = errors.New("already_in_company")
)
