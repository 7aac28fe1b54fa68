package err

import "errors"

var (
	Conflict            = errors.New("RESERVATION_CONFLICT")
	InvalidArgument     = errors.New("INVALID_ARGUMENT")
	OffGrid             = errors.New("START_NOT_ON_SLOT_GRID")
	OverlapDetected     = errors.New("OVERLAP_DETECTED")
	ReservationNotFound = errors.New("RESERVATION_NOT_FOUND")
	ResourceNotFound    = errors.New("RESOURCE_NOT_FOUND")
	StoreUnavailable    = errors.New("STORE_UNAVAILABLE")
)
