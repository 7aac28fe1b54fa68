// Package report aggregates booking statistics. Capacity figures come from
// the slot grid in package models.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Store interface {
	AllResources(ctx context.Context) ([]*models.Resource, error)
	ReservationsBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error)
}

var (
	beginning = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	forever   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

type Reporter struct {
	store Store
	loc   *time.Location
}

func New(store Store, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{store: store, loc: loc}
}

type CarUtilization struct {
	Resource      *models.Resource
	TotalBookings int
	Percentage    decimal.Decimal
}

type DailyRevenue struct {
	Date          string
	TotalBookings int
	Revenue       decimal.Decimal
}

type Dashboard struct {
	TotalBookings    int
	ActiveRequesters int
	TotalCars        int
	TodayBookings    int
	UpcomingBookings int
	PopularCar       *models.Resource
	BusiestSlot      string
}

// window covers the last days calendar days up to the end of today.
func (r *Reporter) window(now time.Time, days int) (time.Time, time.Time, error) {
	if days <= 0 {
		return time.Time{}, time.Time{}, errors.Wrapf(err.InvalidArgument, "days must be positive, got %d", days)
	}
	today := models.StartOfDay(now, r.loc)
	return today.AddDate(0, 0, -days+1), today.AddDate(0, 0, 1), nil
}

// Utilization reports, per car, the share of its slot capacity booked over
// the window: bookings / (days * SlotsPerDay).
func (r *Reporter) Utilization(ctx context.Context, now time.Time, days int) ([]*CarUtilization, error) {
	from, to, werr := r.window(now, days)
	if werr != nil {
		return nil, werr
	}

	cars, cerr := r.store.AllResources(ctx)
	if cerr != nil {
		return nil, cerr
	}
	reservations, rerr := r.store.ReservationsBetween(ctx, from, to)
	if rerr != nil {
		return nil, rerr
	}

	counts := map[int64]int{}
	for _, res := range reservations {
		counts[res.ResourceID]++
	}

	capacity := decimal.NewFromInt(int64(days * models.SlotsPerDay))
	ret := make([]*CarUtilization, 0, len(cars))
	for _, c := range cars {
		n := counts[c.ID]
		ret = append(ret, &CarUtilization{
			Resource:      c,
			TotalBookings: n,
			Percentage:    decimal.NewFromInt(int64(n)).Mul(decimal.NewFromInt(100)).Div(capacity).Round(2),
		})
	}
	sort.SliceStable(ret, func(i, j int) bool {
		if ret[i].TotalBookings == ret[j].TotalBookings {
			return ret[i].Resource.ID < ret[j].Resource.ID
		}
		return ret[i].TotalBookings > ret[j].TotalBookings
	})

	return ret, nil
}

// DailyRevenue lists days with at least one booking, newest first.
func (r *Reporter) DailyRevenue(ctx context.Context, now time.Time, days int, price decimal.Decimal) ([]*DailyRevenue, error) {
	from, to, werr := r.window(now, days)
	if werr != nil {
		return nil, werr
	}
	if price.IsNegative() {
		return nil, errors.Wrapf(err.InvalidArgument, "price must not be negative, got %s", price)
	}

	reservations, rerr := r.store.ReservationsBetween(ctx, from, to)
	if rerr != nil {
		return nil, rerr
	}

	byDate := map[string]int{}
	for _, res := range reservations {
		byDate[res.Start.In(r.loc).Format("2006-01-02")]++
	}

	ret := make([]*DailyRevenue, 0, len(byDate))
	for d, n := range byDate {
		ret = append(ret, &DailyRevenue{
			Date:          d,
			TotalBookings: n,
			Revenue:       price.Mul(decimal.NewFromInt(int64(n))),
		})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Date > ret[j].Date })

	return ret, nil
}

func (r *Reporter) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	cars, cerr := r.store.AllResources(ctx)
	if cerr != nil {
		return nil, cerr
	}
	reservations, rerr := r.store.ReservationsBetween(ctx, beginning, forever)
	if rerr != nil {
		return nil, rerr
	}

	today := models.StartOfDay(now, r.loc)
	tomorrow := today.AddDate(0, 0, 1)

	d := &Dashboard{
		TotalBookings: len(reservations),
		TotalCars:     len(cars),
	}
	requesters := map[string]bool{}
	perCar := map[int64]int{}
	for _, res := range reservations {
		requesters[res.RequesterID] = true
		perCar[res.ResourceID]++
		if within(res.Start, today, tomorrow) {
			d.TodayBookings++
		}
		if res.Start.After(now) {
			d.UpcomingBookings++
		}
	}
	d.ActiveRequesters = len(requesters)

	best := 0
	for _, c := range cars {
		if perCar[c.ID] > best {
			best = perCar[c.ID]
			d.PopularCar = c
		}
	}

	if slots := r.rankSlots(reservations); len(slots) > 0 {
		d.BusiestSlot = slots[0].Slot
	}

	return d, nil
}
