package availability

import (
	"context"
	"runtime"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/data"
	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Calculator classifies cars using reservations read from a store. It keeps
// no state between calls.
type Calculator struct {
	store   data.ReservationStore
	workers int
}

type Option func(*Calculator)

// WithWorkers bounds how many cars ClassifyAll reads concurrently.
func WithWorkers(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.workers = n
		}
	}
}

func New(store data.ReservationStore, opts ...Option) *Calculator {
	c := &Calculator{
		store:   store,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type resourceGetter interface {
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
}

// Classify looks up a car by ID. Unknown IDs fail with err.ResourceNotFound.
func (c *Calculator) Classify(ctx context.Context, resourceID int64, now time.Time) (*models.Classification, error) {
	resource, rerr := c.resource(ctx, resourceID)
	if rerr != nil {
		return nil, rerr
	}
	return c.ClassifyResource(ctx, resource, now)
}

func (c *Calculator) resource(ctx context.Context, id int64) (*models.Resource, error) {
	if g, ok := c.store.(resourceGetter); ok {
		return g.GetResource(ctx, id)
	}

	resources, rerr := c.store.AllResources(ctx)
	if rerr != nil {
		return nil, rerr
	}
	for _, r := range resources {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.Wrapf(err.ResourceNotFound, "car %d", id)
}

// ClassifyResource classifies a car the caller already holds.
func (c *Calculator) ClassifyResource(ctx context.Context, resource *models.Resource, now time.Time) (*models.Classification, error) {
	reservations, rerr := c.store.ReservationsFor(ctx, resource.ID)
	if rerr != nil {
		return nil, rerr
	}
	return Classify(resource, reservations, now)
}

// ClassifyAll classifies every car in store order and counts each status.
// The first failure cancels the remaining reads.
func (c *Calculator) ClassifyAll(ctx context.Context, now time.Time) (*models.FleetClassification, error) {
	resources, rerr := c.store.AllResources(ctx)
	if rerr != nil {
		return nil, rerr
	}

	results := make([]*models.Classification, len(resources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, r := range resources {
		i, r := i, r
		g.Go(func() error {
			cl, cerr := c.ClassifyResource(gctx, r, now)
			if cerr != nil {
				return cerr
			}
			results[i] = cl
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}

	fleet := &models.FleetClassification{
		Now:       now,
		Resources: results,
	}
	for _, cl := range results {
		switch cl.Status {
		case models.StatusAvailable:
			fleet.Available++
		case models.StatusOccupied:
			fleet.Occupied++
		}
	}
	return fleet, nil
}
