package domain

import "errors"

var (
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidMember   = errors.New("invalid_member")
	ErrInvalidName     = errors.New("invalid_name")
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrNoCompany       = errors.New("company_not_found")
	ErrForbidden       = errors.New("forbidden")
	ErrMemberNotFound  = errors.New("member_not_found")
	ErrCrossTenant     = errors.New("member_not_in_company")
	ErrSelfRemoval     = errors.New("cannot_remove_self")
	ErrSoleOwner       = errors.New("sole_owner")
)
