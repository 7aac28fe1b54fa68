package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/pkg/errors"
)

type BookingSummary struct {
	TotalBookings   int
	TotalRequesters int
	TotalCars       int
	Today           int
	ThisWeek        int
	ThisMonth       int
}

type RequesterActivity struct {
	RequesterID   string
	TotalBookings int
	LastBooking   time.Time
}

type SlotCount struct {
	Slot  string
	Count int
}

// Booking is a reservation joined with its car.
type Booking struct {
	Reservation *models.Reservation
	Resource    *models.Resource
}

// Summary counts bookings overall and for the calendar day, week (from
// Monday) and month containing now.
func (r *Reporter) Summary(ctx context.Context, now time.Time) (*BookingSummary, error) {
	cars, cerr := r.store.AllResources(ctx)
	if cerr != nil {
		return nil, cerr
	}
	reservations, rerr := r.store.ReservationsBetween(ctx, beginning, forever)
	if rerr != nil {
		return nil, rerr
	}

	today := models.StartOfDay(now, r.loc)
	week := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, r.loc)

	s := &BookingSummary{
		TotalBookings: len(reservations),
		TotalCars:     len(cars),
	}
	requesters := map[string]bool{}
	for _, res := range reservations {
		requesters[res.RequesterID] = true
		if within(res.Start, today, today.AddDate(0, 0, 1)) {
			s.Today++
		}
		if within(res.Start, week, week.AddDate(0, 0, 7)) {
			s.ThisWeek++
		}
		if within(res.Start, month, month.AddDate(0, 1, 0)) {
			s.ThisMonth++
		}
	}
	s.TotalRequesters = len(requesters)

	return s, nil
}

// Activity ranks requesters by booking count, ties going to the most recent
// booker. Requesters without bookings are not known to the store.
func (r *Reporter) Activity(ctx context.Context, limit int) ([]*RequesterActivity, error) {
	if limit <= 0 {
		return nil, errors.Wrapf(err.InvalidArgument, "limit must be positive, got %d", limit)
	}

	reservations, rerr := r.store.ReservationsBetween(ctx, beginning, forever)
	if rerr != nil {
		return nil, rerr
	}

	byRequester := map[string]*RequesterActivity{}
	for _, res := range reservations {
		a, ok := byRequester[res.RequesterID]
		if !ok {
			a = &RequesterActivity{RequesterID: res.RequesterID}
			byRequester[res.RequesterID] = a
		}
		a.TotalBookings++
		if res.Start.After(a.LastBooking) {
			a.LastBooking = res.Start
		}
	}

	ret := make([]*RequesterActivity, 0, len(byRequester))
	for _, a := range byRequester {
		ret = append(ret, a)
	}
	sort.Slice(ret, func(i, j int) bool {
		switch {
		case ret[i].TotalBookings != ret[j].TotalBookings:
			return ret[i].TotalBookings > ret[j].TotalBookings
		case !ret[i].LastBooking.Equal(ret[j].LastBooking):
			return ret[i].LastBooking.After(ret[j].LastBooking)
		default:
			return ret[i].RequesterID < ret[j].RequesterID
		}
	})
	if len(ret) > limit {
		ret = ret[:limit]
	}

	return ret, nil
}

// PopularSlots counts bookings per slot start hour over the window, busiest
// first.
func (r *Reporter) PopularSlots(ctx context.Context, now time.Time, days int) ([]*SlotCount, error) {
	from, to, werr := r.window(now, days)
	if werr != nil {
		return nil, werr
	}
	reservations, rerr := r.store.ReservationsBetween(ctx, from, to)
	if rerr != nil {
		return nil, rerr
	}
	return r.rankSlots(reservations), nil
}

func (r *Reporter) rankSlots(reservations []*models.Reservation) []*SlotCount {
	counts := map[string]int{}
	for _, res := range reservations {
		counts[fmt.Sprintf("%02d:00", res.Start.In(r.loc).Hour())]++
	}

	ret := make([]*SlotCount, 0, len(counts))
	for s, n := range counts {
		ret = append(ret, &SlotCount{Slot: s, Count: n})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Count == ret[j].Count {
			return ret[i].Slot < ret[j].Slot
		}
		return ret[i].Count > ret[j].Count
	})
	return ret
}

// BookingsByDate lists bookings from the first to the last calendar day,
// both inclusive, newest first.
func (r *Reporter) BookingsByDate(ctx context.Context, first, last time.Time) ([]*Booking, error) {
	from := models.StartOfDay(first, r.loc)
	to := models.StartOfDay(last, r.loc).AddDate(0, 0, 1)
	if !from.Before(to) {
		return nil, errors.Wrapf(err.InvalidArgument, "%s is after %s", from.Format("2006-01-02"), last.In(r.loc).Format("2006-01-02"))
	}

	cars, cerr := r.store.AllResources(ctx)
	if cerr != nil {
		return nil, cerr
	}
	reservations, rerr := r.store.ReservationsBetween(ctx, from, to)
	if rerr != nil {
		return nil, rerr
	}

	byID := make(map[int64]*models.Resource, len(cars))
	for _, c := range cars {
		byID[c.ID] = c
	}

	ret := make([]*Booking, 0, len(reservations))
	for i := len(reservations) - 1; i >= 0; i-- {
		res := reservations[i]
		ret = append(ret, &Booking{Reservation: res, Resource: byID[res.ResourceID]})
	}

	return ret, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
