package handler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	e "github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/ZiyadSefiri/Car-Check-Service/util"
	"github.com/pkg/errors"
)

type action struct {
	name string
	re   *regexp.Regexp
}

const defaultActivityLimit = 10

// Checked in order against the message text with any leading mention removed.
var actions = []action{
	{"help", regexp.MustCompile(`(?i)^help$`)},
	{"all_status", regexp.MustCompile(`(?i)^status$`)},
	{"single_status", regexp.MustCompile(`(?i)^status\s+(.+)$`)},
	{"my_status", regexp.MustCompile(`(?i)^my\s+status$`)},
	{"reserve", regexp.MustCompile(`(?i)^reserve\s+(\S+)\s+(\d{4}-\d{2}-\d{2})\s+(\d{1,2}:\d{2})$`)},
	{"cancel", regexp.MustCompile(`(?i)^cancel\s+#?(\d+)$`)},
	{"report", regexp.MustCompile(`(?i)^report(?:\s+(\d+))?$`)},
	{"dashboard", regexp.MustCompile(`(?i)^dashboard$`)},
	{"summary", regexp.MustCompile(`(?i)^summary$`)},
	{"activity", regexp.MustCompile(`(?i)^activity(?:\s+(\d+))?$`)},
	{"slots", regexp.MustCompile(`(?i)^slots(?:\s+(\d+))?$`)},
	{"bookings", regexp.MustCompile(`(?i)^bookings\s+(\d{4}-\d{2}-\d{2})(?:\s+(\d{4}-\d{2}-\d{2}))?$`)},
}

var (
	msgHelp = "Here's what I can do:\n" +
		"`status` shows every car, `status <car>` shows one car by id or plate\n" +
		"`my status` lists your upcoming bookings\n" +
		"`reserve <car> <YYYY-MM-DD HH:MM>` books a 2 hour slot\n" +
		"`cancel <reservation id>` cancels one of your bookings\n" +
		"`report [days]` shows utilization and revenue, `dashboard` shows totals\n" +
		"`summary` counts bookings this week and month, `activity [n]` lists the most active users\n" +
		"`slots [days]` ranks slot times, `bookings <YYYY-MM-DD> [YYYY-MM-DD]` lists bookings by date\n" +
		"You can also just ask, e.g. _which cars are free?_"

	msgBookingInPast       = "you cannot book a slot that has already started"
	msgCarDoesNotExist     = "I don't know that car. Try `status` to see the fleet."
	msgConflictingRecords  = "I found conflicting bookings in my records and reported it. Please try again later."
	msgIDontKnow           = "I don't know what happened, but it wasn't good"
	msgInvalidInstantY     = "`%s` is not a date and time I understand, use `YYYY-MM-DD HH:MM`"
	msgInvalidDateY        = "`%s` is not a date I understand, use `YYYY-MM-DD`"
	msgNoCars              = "There are no cars in the fleet yet."
	msgNotANumberY         = "`%s` is not a positive number"
	msgNotYourReservation  = "reservation #%d belongs to someone else"
	msgNothingToSay        = "I'm not sure what you're asking. Say `help` to see what I can do."
	msgOffGridY            = "bookings start on the slot grid: %s"
	msgReservationNotFound = "that reservation does not exist"
	msgSlotTaken           = "that slot overlaps an existing booking. Try `status <car>` for free times."
	msgXIsBeforeY          = "`%s` is before `%s`"
	msgXReservedYFromToZ   = "%s is yours from %s to %s (reservation #%d)"
	msgYouCancelledXY      = "you cancelled reservation #%d for %s at %s"
	msgYouHaveNoBookings   = "you have no upcoming bookings"
)

func getAction(text string) (string, []string) {
	for _, a := range actions {
		if m := a.re.FindStringSubmatch(text); m != nil {
			return a.name, m[1:]
		}
	}
	return "", nil
}

func (h *Handler) allStatus(ctx context.Context, ea *EventAction) (string, error) {
	fleet, err := h.calc.ClassifyAll(ctx, ea.Now)
	if err != nil {
		return "", err
	}
	if len(fleet.Resources) == 0 {
		return msgNoCars, nil
	}
	return renderFleet(fleet, h.loc), nil
}

func (h *Handler) singleStatus(ctx context.Context, ea *EventAction) (string, error) {
	res, err := h.data.FindResource(ctx, ea.Matches[0])
	if err != nil {
		return "", err
	}
	c, err := h.calc.ClassifyResource(ctx, res, ea.Now)
	if err != nil {
		return "", err
	}
	return renderClassification(c, h.loc, true), nil
}

func (h *Handler) myStatus(ctx context.Context, ea *EventAction) (string, error) {
	u, err := h.getUser(ea.Event.User)
	if err != nil {
		return "", err
	}

	all, err := h.data.ReservationsForRequester(ctx, u.ID)
	if err != nil {
		return "", err
	}

	lines := []string{}
	pos := 0
	for _, r := range all {
		if !r.End().After(ea.Now) {
			continue
		}
		car, err := h.data.GetResource(ctx, r.ResourceID)
		if err != nil {
			return "", err
		}
		pos++
		lines = append(lines, renderBooking(util.Ordinalize(pos), r, car, ea.Now, h.loc))
	}

	if len(lines) == 0 {
		return msgYouHaveNoBookings, nil
	}
	return strings.Join(lines, "\n"), nil
}

func (h *Handler) reserve(ctx context.Context, ea *EventAction) (string, error) {
	u, err := h.getUser(ea.Event.User)
	if err != nil {
		return "", err
	}

	raw := ea.Matches[1] + " " + ea.Matches[2]
	start, err := util.ParseInstant(raw, h.loc)
	if err != nil {
		return fmt.Sprintf(msgInvalidInstantY, raw), nil
	}
	if !models.OnGrid(start, h.loc) {
		return fmt.Sprintf(msgOffGridY, slotGrid(start, h.loc)), nil
	}
	if start.Before(ea.Now) {
		return msgBookingInPast, nil
	}

	car, err := h.data.FindResource(ctx, ea.Matches[0])
	if err != nil {
		return "", err
	}

	res, err := h.data.CreateReservation(ctx, car.ID, u.ID, start)
	if err != nil {
		return "", err
	}
	ea.Log.WithField("reservation", res.ID).Infof("%s reserved %s at %s", u.ID, car, res.Start)

	return fmt.Sprintf(msgXReservedYFromToZ, car, util.FormatInstant(res.Start, h.loc), util.FormatClock(res.End(), h.loc), res.ID), nil
}

func (h *Handler) cancel(ctx context.Context, ea *EventAction) (string, error) {
	u, err := h.getUser(ea.Event.User)
	if err != nil {
		return "", err
	}

	id, err := strconv.ParseInt(ea.Matches[0], 10, 64)
	if err != nil {
		return "", errors.Wrap(e.ReservationNotFound, err.Error())
	}

	res, err := h.data.GetReservation(ctx, id)
	if err != nil {
		return "", err
	}
	if res.RequesterID != u.ID {
		return fmt.Sprintf(msgNotYourReservation, id), nil
	}

	car, err := h.data.GetResource(ctx, res.ResourceID)
	if err != nil {
		return "", err
	}
	if err := h.data.DeleteReservation(ctx, id); err != nil {
		return "", err
	}
	ea.Log.WithField("reservation", id).Infof("%s cancelled a booking of %s", u.ID, car)

	return fmt.Sprintf(msgYouCancelledXY, id, car, util.FormatInstant(res.Start, h.loc)), nil
}

// countArg reads an optional positive count from the first match.
func countArg(ea *EventAction, def int) (int, bool) {
	if len(ea.Matches) == 0 || ea.Matches[0] == "" {
		return def, true
	}
	n, err := strconv.Atoi(ea.Matches[0])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) report(ctx context.Context, ea *EventAction) (string, error) {
	days, ok := countArg(ea, h.windowDays)
	if !ok {
		return fmt.Sprintf("`%s` is not a number of days", ea.Matches[0]), nil
	}

	usage, err := h.reports.Utilization(ctx, ea.Now, days)
	if err != nil {
		return "", err
	}
	revenue, err := h.reports.DailyRevenue(ctx, ea.Now, days, h.price)
	if err != nil {
		return "", err
	}
	return renderReport(days, usage, revenue), nil
}

func (h *Handler) dashboard(ctx context.Context, ea *EventAction) (string, error) {
	d, err := h.reports.Dashboard(ctx, ea.Now)
	if err != nil {
		return "", err
	}
	return renderDashboard(d), nil
}

func (h *Handler) summary(ctx context.Context, ea *EventAction) (string, error) {
	s, err := h.reports.Summary(ctx, ea.Now)
	if err != nil {
		return "", err
	}
	return renderSummary(s), nil
}

func (h *Handler) activity(ctx context.Context, ea *EventAction) (string, error) {
	limit, ok := countArg(ea, defaultActivityLimit)
	if !ok {
		return fmt.Sprintf(msgNotANumberY, ea.Matches[0]), nil
	}
	rows, err := h.reports.Activity(ctx, limit)
	if err != nil {
		return "", err
	}
	return renderActivity(rows, h.loc), nil
}

func (h *Handler) slots(ctx context.Context, ea *EventAction) (string, error) {
	days, ok := countArg(ea, h.windowDays)
	if !ok {
		return fmt.Sprintf("`%s` is not a number of days", ea.Matches[0]), nil
	}
	rows, err := h.reports.PopularSlots(ctx, ea.Now, days)
	if err != nil {
		return "", err
	}
	return renderSlots(days, rows), nil
}

func (h *Handler) bookings(ctx context.Context, ea *EventAction) (string, error) {
	first, err := util.ParseDate(ea.Matches[0], h.loc)
	if err != nil {
		return fmt.Sprintf(msgInvalidDateY, ea.Matches[0]), nil
	}
	last := first
	if len(ea.Matches) > 1 && ea.Matches[1] != "" {
		if last, err = util.ParseDate(ea.Matches[1], h.loc); err != nil {
			return fmt.Sprintf(msgInvalidDateY, ea.Matches[1]), nil
		}
	}
	if last.Before(first) {
		return fmt.Sprintf(msgXIsBeforeY, ea.Matches[1], ea.Matches[0]), nil
	}

	rows, err := h.reports.BookingsByDate(ctx, first, last)
	if err != nil {
		return "", err
	}
	return renderBookings(first, last, rows, h.loc), nil
}

// assist answers free text with one section per requested category.
func (h *Handler) assist(ctx context.Context, ea *EventAction, text string) (string, error) {
	cats := Categorize(text)
	if cats == 0 {
		return msgNothingToSay, nil
	}

	sections := []string{}
	if cats.Has(CategoryCars) {
		msg, err := h.allStatus(ctx, ea)
		if err != nil {
			return "", err
		}
		sections = append(sections, msg)
	}
	if cats.Has(CategoryReservations) {
		msg, err := h.myStatus(ctx, ea)
		if err != nil {
			return "", err
		}
		sections = append(sections, "*Your bookings*\n"+msg)
	}
	if cats.Has(CategoryStats) {
		msg, err := h.dashboard(ctx, ea)
		if err != nil {
			return "", err
		}
		sections = append(sections, msg)
	}
	return strings.Join(sections, "\n\n"), nil
}

func (h *Handler) errorText(ea *EventAction, err error) string {
	switch {
	case errors.Is(err, e.ResourceNotFound):
		return msgCarDoesNotExist
	case errors.Is(err, e.ReservationNotFound):
		return msgReservationNotFound
	case errors.Is(err, e.Conflict):
		return msgSlotTaken
	case errors.Is(err, e.OverlapDetected):
		ea.Log.WithField("invariant", "no-overlap").Errorf("%+v", err)
		return msgConflictingRecords
	default:
		ea.Log.Errorf("%+v", err)
		return msgIDontKnow
	}
}
