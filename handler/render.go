package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/ZiyadSefiri/Car-Check-Service/report"
	"github.com/ZiyadSefiri/Car-Check-Service/util"
)

// maxUpcoming caps the upcoming bookings listed per car.
const maxUpcoming = 3

func carLabel(r *models.Resource) string {
	return fmt.Sprintf("Car %d | %s | %s", r.ID, r.Model, r.LicensePlate)
}

func renderClassification(c *models.Classification, loc *time.Location, detail bool) string {
	var b strings.Builder

	switch {
	case c.Status == models.StatusOccupied:
		fmt.Fprintf(&b, ":red_circle: %s | CURRENTLY BOOKED | Available after: %s",
			carLabel(c.Resource), util.FormatInstant(*c.AvailableAfter, loc))
	case c.NextBookingAt != nil:
		fmt.Fprintf(&b, ":white_check_mark: %s | AVAILABLE NOW | Next booking: %s",
			carLabel(c.Resource), util.FormatInstant(*c.NextBookingAt, loc))
	default:
		fmt.Fprintf(&b, ":white_check_mark: %s | AVAILABLE NOW | No upcoming bookings", carLabel(c.Resource))
	}

	if !detail && c.Status == models.StatusAvailable {
		return b.String()
	}
	for i, u := range c.Upcoming {
		if i == maxUpcoming {
			fmt.Fprintf(&b, "\n    and %d more", len(c.Upcoming)-maxUpcoming)
			break
		}
		fmt.Fprintf(&b, "\n    upcoming: %s to %s", util.FormatInstant(u.Start, loc), util.FormatClock(u.End(), loc))
	}
	return b.String()
}

func renderFleet(f *models.FleetClassification, loc *time.Location) string {
	lines := make([]string, 0, len(f.Resources)+2)
	for _, c := range f.Resources {
		lines = append(lines, renderClassification(c, loc, false))
	}
	lines = append(lines,
		fmt.Sprintf("Summary: %d available now | %d currently booked", f.Available, f.Occupied),
		fmt.Sprintf("Current time: %s", util.FormatInstant(f.Now, loc)),
	)
	return strings.Join(lines, "\n")
}

func renderBooking(ordinal string, r *models.Reservation, car *models.Resource, now time.Time, loc *time.Location) string {
	state := ""
	if r.Contains(now) {
		state = " (in progress)"
	}
	return fmt.Sprintf("%s: %s from %s to %s, reservation #%d%s",
		ordinal, car, util.FormatInstant(r.Start, loc), util.FormatClock(r.End(), loc), r.ID, state)
}

// slotGrid lists the day's slot start times, e.g. "08:00, 10:00, ...".
func slotGrid(day time.Time, loc *time.Location) string {
	starts := models.SlotStarts(day, loc)
	ret := make([]string, 0, len(starts))
	for _, s := range starts {
		ret = append(ret, util.FormatClock(s, loc))
	}
	return strings.Join(ret, ", ")
}

func renderReport(days int, usage []*report.CarUtilization, revenue []*report.DailyRevenue) string {
	lines := []string{fmt.Sprintf("*Utilization over the last %d day(s)* (%d slots per car per day)", days, models.SlotsPerDay)}
	for _, u := range usage {
		lines = append(lines, fmt.Sprintf("%s: %d booking(s), %s%%", u.Resource, u.TotalBookings, u.Percentage.StringFixed(2)))
	}
	lines = append(lines, "*Revenue*")
	if len(revenue) == 0 {
		lines = append(lines, "no bookings in this window")
	}
	for _, r := range revenue {
		lines = append(lines, fmt.Sprintf("%s: %d booking(s), %s", r.Date, r.TotalBookings, r.Revenue.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

func renderDashboard(d *report.Dashboard) string {
	popular := "none yet"
	if d.PopularCar != nil {
		popular = d.PopularCar.String()
	}
	busiest := "none yet"
	if d.BusiestSlot != "" {
		busiest = d.BusiestSlot
	}
	return strings.Join([]string{
		"*Dashboard*",
		fmt.Sprintf("Cars: %d | Bookings: %d | Active users: %d", d.TotalCars, d.TotalBookings, d.ActiveRequesters),
		fmt.Sprintf("Today: %d | Upcoming: %d", d.TodayBookings, d.UpcomingBookings),
		fmt.Sprintf("Most popular car: %s | Busiest slot: %s", popular, busiest),
	}, "\n")
}

func renderSummary(s *report.BookingSummary) string {
	return strings.Join([]string{
		"*Booking summary*",
		fmt.Sprintf("Total: %d | Today: %d | This week: %d | This month: %d", s.TotalBookings, s.Today, s.ThisWeek, s.ThisMonth),
		fmt.Sprintf("Cars: %d | Users with bookings: %d", s.TotalCars, s.TotalRequesters),
	}, "\n")
}

func renderActivity(rows []*report.RequesterActivity, loc *time.Location) string {
	if len(rows) == 0 {
		return "*Most active users*\nno bookings yet"
	}
	lines := []string{"*Most active users*"}
	for i, a := range rows {
		lines = append(lines, fmt.Sprintf("%s: <@%s> %d booking(s), last %s",
			util.Ordinalize(i+1), a.RequesterID, a.TotalBookings, util.FormatInstant(a.LastBooking, loc)))
	}
	return strings.Join(lines, "\n")
}

func renderSlots(days int, rows []*report.SlotCount) string {
	lines := []string{fmt.Sprintf("*Popular slots over the last %d day(s)*", days)}
	if len(rows) == 0 {
		lines = append(lines, "no bookings in this window")
	}
	for _, s := range rows {
		lines = append(lines, fmt.Sprintf("%s: %d booking(s)", s.Slot, s.Count))
	}
	return strings.Join(lines, "\n")
}

func renderBookings(first, last time.Time, rows []*report.Booking, loc *time.Location) string {
	title := "*Bookings on " + first.In(loc).Format(util.DateLayout) + "*"
	if !models.StartOfDay(first, loc).Equal(models.StartOfDay(last, loc)) {
		title = fmt.Sprintf("*Bookings from %s to %s*", first.In(loc).Format(util.DateLayout), last.In(loc).Format(util.DateLayout))
	}
	lines := []string{title}
	if len(rows) == 0 {
		lines = append(lines, "no bookings")
	}
	for _, b := range rows {
		car := fmt.Sprintf("car %d", b.Reservation.ResourceID)
		if b.Resource != nil {
			car = b.Resource.String()
		}
		lines = append(lines, fmt.Sprintf("#%d | %s | %s | <@%s>",
			b.Reservation.ID, util.FormatInstant(b.Reservation.Start, loc), car, b.Reservation.RequesterID))
	}
	return strings.Join(lines, "\n")
}
