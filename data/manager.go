package data

import (
	"context"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/models"
)

// ReservationStore is the read side the availability engine depends on.
type ReservationStore interface {
	// ReservationsFor returns a car's reservations ascending by start.
	ReservationsFor(ctx context.Context, resourceID int64) ([]*models.Reservation, error)
	AllResources(ctx context.Context) ([]*models.Resource, error)
}

// BookingStore creates and deletes reservations. CreateReservation rejects
// any slot that overlaps an existing reservation of the same car.
type BookingStore interface {
	CreateReservation(ctx context.Context, resourceID int64, requesterID string, start time.Time) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

type DataManager interface {
	ReservationStore
	BookingStore

	AddResource(ctx context.Context, model, plate string) (*models.Resource, error)
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	// FindResource accepts a numeric ID or a license plate.
	FindResource(ctx context.Context, query string) (*models.Resource, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ReservationsForRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error)
	// ReservationsBetween returns every reservation with from <= start < to.
	ReservationsBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error)
}
