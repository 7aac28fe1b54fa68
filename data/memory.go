package data

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/pkg/errors"
)

type Memory struct {
	Reservations map[int64][]*models.Reservation
	Resources    map[int64]*models.Resource

	nextResource    int64
	nextReservation int64

	lock sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		Reservations: map[int64][]*models.Reservation{},
		Resources:    map[int64]*models.Resource{},
	}
}

func (m *Memory) AddResource(ctx context.Context, model, plate string) (*models.Resource, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	key := models.PlateKey(plate)
	for _, r := range m.Resources {
		if r.Key() == key {
			return nil, errors.Wrapf(err.Conflict, "license plate %s already registered", plate)
		}
	}

	m.nextResource++
	r := &models.Resource{
		ID:           m.nextResource,
		Model:        model,
		LicensePlate: plate,
	}
	m.Resources[r.ID] = r
	m.Reservations[r.ID] = []*models.Reservation{}

	return copyResource(r), nil
}

func (m *Memory) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	r, ok := m.Resources[id]
	if !ok {
		return nil, errors.Wrapf(err.ResourceNotFound, "car %d", id)
	}
	return copyResource(r), nil
}

func (m *Memory) FindResource(ctx context.Context, query string) (*models.Resource, error) {
	// an all-digit query is tried as an ID first, then as a plate
	if id, perr := strconv.ParseInt(strings.TrimSpace(query), 10, 64); perr == nil {
		r, gerr := m.GetResource(ctx, id)
		if !errors.Is(gerr, err.ResourceNotFound) {
			return r, gerr
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	key := models.PlateKey(query)
	for _, r := range m.Resources {
		if r.Key() == key {
			return copyResource(r), nil
		}
	}
	return nil, errors.Wrapf(err.ResourceNotFound, "car %q", query)
}

func (m *Memory) AllResources(ctx context.Context) ([]*models.Resource, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	ret := make([]*models.Resource, 0, len(m.Resources))
	for _, r := range m.Resources {
		ret = append(ret, copyResource(r))
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })

	return ret, nil
}

func (m *Memory) ReservationsFor(ctx context.Context, resourceID int64) ([]*models.Reservation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	if _, ok := m.Resources[resourceID]; !ok {
		return nil, errors.Wrapf(err.ResourceNotFound, "car %d", resourceID)
	}

	// the per-car slice is kept sorted on insert
	return copyReservations(m.Reservations[resourceID]), nil
}

func (m *Memory) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, queue := range m.Reservations {
		for _, res := range queue {
			if res.ID == id {
				c := *res
				return &c, nil
			}
		}
	}
	return nil, errors.Wrapf(err.ReservationNotFound, "reservation %d", id)
}

func (m *Memory) ReservationsForRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error) {
	return m.filter(ctx, func(res *models.Reservation) bool {
		return res.RequesterID == requesterID
	})
}

func (m *Memory) ReservationsBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	return m.filter(ctx, func(res *models.Reservation) bool {
		return !res.Start.Before(from) && res.Start.Before(to)
	})
}

func (m *Memory) filter(ctx context.Context, keep func(*models.Reservation) bool) ([]*models.Reservation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	ret := []*models.Reservation{}
	for _, queue := range m.Reservations {
		for _, res := range queue {
			if keep(res) {
				c := *res
				ret = append(ret, &c)
			}
		}
	}
	models.SortByStart(ret)

	return ret, nil
}

// CreateReservation runs the overlap check and the insert under one write
// lock, so two concurrent bookings of the same slot cannot both succeed.
func (m *Memory) CreateReservation(ctx context.Context, resourceID int64, requesterID string, start time.Time) (*models.Reservation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if requesterID == "" {
		return nil, errors.Wrap(err.InvalidArgument, "requester is required")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.Resources[resourceID]; !ok {
		return nil, errors.Wrapf(err.ResourceNotFound, "car %d", resourceID)
	}

	queue := m.Reservations[resourceID]
	for _, existing := range queue {
		if models.OverlapsStart(existing.Start, start) {
			return nil, errors.Wrapf(err.Conflict, "car %d is reserved from %s", resourceID, existing.Start.UTC().Format(time.RFC3339))
		}
	}

	m.nextReservation++
	res := &models.Reservation{
		ID:          m.nextReservation,
		ResourceID:  resourceID,
		RequesterID: requesterID,
		Start:       start.UTC(),
	}

	idx := sort.Search(len(queue), func(i int) bool { return queue[i].Start.After(res.Start) })
	queue = append(queue, nil)
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = res
	m.Reservations[resourceID] = queue

	c := *res
	return &c, nil
}

func (m *Memory) DeleteReservation(ctx context.Context, id int64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	for rid, queue := range m.Reservations {
		for i, res := range queue {
			if res.ID == id {
				filtered := make([]*models.Reservation, 0, len(queue)-1)
				filtered = append(filtered, queue[:i]...)
				m.Reservations[rid] = append(filtered, queue[i+1:]...)
				return nil
			}
		}
	}
	return errors.Wrapf(err.ReservationNotFound, "reservation %d", id)
}

func copyResource(r *models.Resource) *models.Resource {
	c := *r
	return &c
}

func copyReservations(in []*models.Reservation) []*models.Reservation {
	ret := make([]*models.Reservation, 0, len(in))
	for _, res := range in {
		c := *res
		ret = append(ret, &c)
	}
	return ret
}
