package domain

import "errors"

var (
	ErrInvalidPropertyID = errors.New("invalid_property_id")
	ErrInvalidName       = errors.New("invalid_property_name")
	ErrInvalidAddress    = errors.New("invalid_property_address")
	ErrInvalidTimezone   = errors.New("invalid_property_timezone")
	ErrInvalidUnitName   = errors.New("invalid_unit_name")
	ErrInvalidUnitType   = errors.New("invalid_unit_type")
	ErrInvalidWaterType  = errors.New("invalid_water_type")
	ErrInvalidVolume     = errors.New("invalid_volume_litres")
	ErrPropertyNotFound  = errors.New("property_not_found")
	ErrUnitNotFound      = errors.New("unit_not_found")
)
