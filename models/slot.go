package models

import "time"

// The operating day runs from OpeningHour to ClosingHour in fixed slots.
// Every consumer of slot capacity (booking, availability, reporting) reads
// these values.
const (
	SlotDuration = 2 * time.Hour
	OpeningHour  = 8
	ClosingHour  = 18
	SlotsPerDay  = int(time.Duration(ClosingHour-OpeningHour) * time.Hour / SlotDuration)
)

// SlotStarts returns the slot start instants of the calendar day containing
// day, evaluated in loc.
func SlotStarts(day time.Time, loc *time.Location) []time.Time {
	d := day.In(loc)
	open := time.Date(d.Year(), d.Month(), d.Day(), OpeningHour, 0, 0, 0, loc)
	ret := make([]time.Time, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		ret = append(ret, open.Add(time.Duration(i)*SlotDuration))
	}
	return ret
}

// OnGrid reports whether t is exactly one of its day's slot starts in loc.
func OnGrid(t time.Time, loc *time.Location) bool {
	for _, s := range SlotStarts(t, loc) {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	d := t.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}
