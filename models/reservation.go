package models

import (
	"sort"
	"time"
)

type Reservation struct {
	ID          int64
	ResourceID  int64
	RequesterID string
	Start       time.Time
}

// End is the first instant the reservation no longer occupies its car.
func (r *Reservation) End() time.Time {
	return r.Start.Add(SlotDuration)
}

// Contains reports whether t falls inside [Start, End).
func (r *Reservation) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End())
}

// Overlaps reports whether the occupied intervals of r and o intersect.
func (r *Reservation) Overlaps(o *Reservation) bool {
	return OverlapsStart(r.Start, o.Start)
}

// OverlapsStart reports whether slots starting at a and b intersect. Every
// reservation lasts SlotDuration, so this reduces to |a-b| < SlotDuration.
func OverlapsStart(a, b time.Time) bool {
	return a.Before(b.Add(SlotDuration)) && b.Before(a.Add(SlotDuration))
}

// SortByStart orders reservations ascending by start, then by ID.
func SortByStart(rs []*Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Start.Equal(rs[j].Start) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].Start.Before(rs[j].Start)
	})
}
