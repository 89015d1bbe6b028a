package domain

import "errors"

var (
	ErrInvalidVisitID      = errors.New("invalid_visit_id")
	ErrInvalidUnitID       = errors.New("invalid_unit_id")
	ErrInvalidTechnicianID = errors.New("invalid_technician_id")
	ErrInvalidServiceDate  = errors.New("invalid_service_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidNotes        = errors.New("invalid_notes")
	ErrEmptyWaterTest      = errors.New("empty_water_test")
	ErrInvalidReading      = errors.New("invalid_reading")
	ErrInvalidChemicalType = errors.New("invalid_chemical_type")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidMeasure      = errors.New("invalid_unit_of_measure")
	ErrInvalidCost         = errors.New("invalid_cost")
	ErrInvalidTaskType     = errors.New("invalid_task_type")
	ErrVisitNotFound       = errors.New("service_visit_not_found")
	ErrVisitCancelled      = errors.New("service_visit_cancelled")
)
