package domain

import "errors"

var (
	ErrInvalidName      = errors.New("invalid_company_name")
	ErrInvalidTimezone  = errors.New("invalid_timezone")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidWebsite   = errors.New("invalid_website")
	ErrInvalidTaxID     = errors.New("invalid_tax_id")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrAlreadyOnboarded = errors.New("already_in_company")
)
