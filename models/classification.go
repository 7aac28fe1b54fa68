package models

import "time"

type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

func (s Status) String() string {
	return string(s)
}

// Classification is a car's state as of Now. It is only valid for that
// instant.
type Classification struct {
	Resource *Resource
	Now      time.Time
	Status   Status

	// Current is the reservation containing Now, if any.
	Current *Reservation
	// AvailableAfter is Current's end. Nil when Available.
	AvailableAfter *time.Time
	// NextBookingAt is the first upcoming start. Only set when Available.
	NextBookingAt *time.Time
	// Upcoming holds reservations starting strictly after Now, ascending.
	Upcoming []*Reservation

	Total int
}

func (c *Classification) Available() bool {
	return c.Status == StatusAvailable
}

type FleetClassification struct {
	Now       time.Time
	Resources []*Classification
	Available int
	Occupied  int
}
