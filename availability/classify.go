// Package availability derives a car's status at an instant from its
// reservations.
package availability

import (
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/pkg/errors"
)

// Classify reports the status of resource as of now. It is a pure function
// of its arguments; the reservations slice is not modified and may be in any
// order.
//
// A reservation occupies [Start, Start+SlotDuration). It is current when
// that interval contains now and upcoming when it starts after now. Two
// reservations that have not yet ended and overlap each other yield
// err.OverlapDetected.
func Classify(resource *models.Resource, reservations []*models.Reservation, now time.Time) (*models.Classification, error) {
	sorted := make([]*models.Reservation, len(reservations))
	copy(sorted, reservations)
	models.SortByStart(sorted)

	c := &models.Classification{
		Resource: resource,
		Now:      now,
		Status:   models.StatusAvailable,
		Upcoming: []*models.Reservation{},
		Total:    len(sorted),
	}

	// pairs that both ended before now are history; a live reservation is
	// still checked against the one just before it, ended or not
	var prev *models.Reservation
	for _, res := range sorted {
		if !res.End().After(now) {
			prev = res
			continue
		}
		if prev != nil && prev.Overlaps(res) {
			return nil, errors.Wrapf(err.OverlapDetected, "car %d: reservations %d and %d", resourceID(resource), prev.ID, res.ID)
		}
		prev = res

		switch {
		case res.Contains(now):
			c.Current = res
		case res.Start.After(now):
			c.Upcoming = append(c.Upcoming, res)
		}
	}

	if c.Current != nil {
		end := c.Current.End()
		c.Status = models.StatusOccupied
		c.AvailableAfter = &end
	} else if len(c.Upcoming) > 0 {
		next := c.Upcoming[0].Start
		c.NextBookingAt = &next
	}

	return c, nil
}

func resourceID(r *models.Resource) int64 {
	if r == nil {
		return 0
	}
	return r.ID
}
