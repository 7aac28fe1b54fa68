package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/availability"
	"github.com/ZiyadSefiri/Car-Check-Service/data"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/ZiyadSefiri/Car-Check-Service/report"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type fakeSlack struct {
	users map[string]*slack.User
	posts []string
}

func (f *fakeSlack) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.posts = append(f.posts, channelID)
	return channelID, "1234.5678", nil
}

func (f *fakeSlack) GetUserInfo(user string) (*slack.User, error) {
	u, ok := f.users[user]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

type fixture struct {
	h     *Handler
	slack *fakeSlack
	data  *data.Memory
	cars  []*models.Resource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	m := data.NewMemory()
	var cars []*models.Resource
	for _, c := range [][2]string{{"Toyota Camry", "AB-123"}, {"Honda Civic", "CD-456"}, {"Kia Rio", "EF-789"}} {
		r, err := m.AddResource(ctx, c[0], c[1])
		if err != nil {
			t.Fatal(err)
		}
		cars = append(cars, r)
	}

	fs := &fakeSlack{users: map[string]*slack.User{
		"U1": {ID: "U1", Name: "alice", RealName: "Alice"},
		"U2": {ID: "U2", Name: "bob"},
	}}
	h := New(fs, m, availability.New(m), report.New(m, time.UTC), Options{
		Location:   time.UTC,
		Clock:      func() time.Time { return now },
		WindowDays: 7,
		Price:      decimal.NewFromInt(50),
	})
	return &fixture{h: h, slack: fs, data: m, cars: cars}
}

func (f *fixture) say(t *testing.T, user, text string) string {
	t.Helper()
	msg, err := f.h.Handle(context.Background(), &Event{User: user, Channel: "C1", Text: "<@UBOT> " + text})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return msg
}

func (f *fixture) dm(t *testing.T, user, text string) string {
	t.Helper()
	msg, err := f.h.Handle(context.Background(), &Event{User: user, Channel: "D1", ChannelType: "im", Text: text})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return msg
}

func (f *fixture) book(t *testing.T, car *models.Resource, user string, start time.Time) *models.Reservation {
	t.Helper()
	r, err := f.data.CreateReservation(context.Background(), car.ID, user, start)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func TestGetAction(t *testing.T) {
	tests := []struct {
		text    string
		action  string
		matches []string
	}{
		{"help", "help", nil},
		{"status", "all_status", nil},
		{"STATUS", "all_status", nil},
		{"status AB-123", "single_status", []string{"AB-123"}},
		{"my status", "my_status", nil},
		{"reserve 2 2025-06-02 14:00", "reserve", []string{"2", "2025-06-02", "14:00"}},
		{"cancel #7", "cancel", []string{"7"}},
		{"cancel 7", "cancel", []string{"7"}},
		{"report", "report", []string{""}},
		{"report 14", "report", []string{"14"}},
		{"dashboard", "dashboard", nil},
		{"summary", "summary", nil},
		{"activity", "activity", []string{""}},
		{"activity 3", "activity", []string{"3"}},
		{"slots 30", "slots", []string{"30"}},
		{"bookings 2025-06-01", "bookings", []string{"2025-06-01", ""}},
		{"bookings 2025-06-01 2025-06-07", "bookings", []string{"2025-06-01", "2025-06-07"}},
		{"bookings", "", nil},
		{"which cars are free?", "", nil},
		{"reserve AB-123 tomorrow", "", nil},
	}
	for _, tt := range tests {
		action, matches := getAction(tt.text)
		if action != tt.action {
			t.Errorf("%q: action = %q, want %q", tt.text, action, tt.action)
			continue
		}
		if len(tt.matches) != len(matches) {
			t.Errorf("%q: matches = %q, want %q", tt.text, matches, tt.matches)
			continue
		}
		for i := range matches {
			if matches[i] != tt.matches[i] {
				t.Errorf("%q: match %d = %q, want %q", tt.text, i, matches[i], tt.matches[i])
			}
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want Categories
	}{
		{"Which cars are free?", CategoryCars},
		{"show me my bookings", CategoryReservations},
		{"how many total bookings, and what's the busiest time", CategoryReservations | CategoryStats},
		{"When is the Camry available? And my reservations", CategoryCars | CategoryReservations},
		{"scares", 0},
		{"hello", 0},
	}
	for _, tt := range tests {
		if got := Categorize(tt.text); got != tt.want {
			t.Errorf("Categorize(%q) = %b, want %b", tt.text, got, tt.want)
		}
	}
}

func TestAllStatus(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[1], "U2", at(10))
	f.book(t, f.cars[1], "U2", at(14))
	f.book(t, f.cars[2], "U2", at(16))

	msg := f.say(t, "U1", "status")
	for _, want := range []string{
		"Car 1 | Toyota Camry | AB-123 | AVAILABLE NOW | No upcoming bookings",
		"Car 2 | Honda Civic | CD-456 | CURRENTLY BOOKED | Available after: 2025-06-02 12:00",
		"upcoming: 2025-06-02 14:00 to 16:00",
		"Car 3 | Kia Rio | EF-789 | AVAILABLE NOW | Next booking: 2025-06-02 16:00",
		"Summary: 2 available now | 1 currently booked",
		"Current time: 2025-06-02 10:00",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("status reply missing %q:\n%s", want, msg)
		}
	}
	if len(f.slack.posts) != 1 || f.slack.posts[0] != "C1" {
		t.Fatalf("posts = %v", f.slack.posts)
	}
}

func TestEmptyFleet(t *testing.T) {
	m := data.NewMemory()
	h := New(&fakeSlack{}, m, availability.New(m), report.New(m, time.UTC), Options{Location: time.UTC})
	msg, err := h.Handle(context.Background(), &Event{User: "U1", Channel: "C1", Text: "status"})
	if err != nil {
		t.Fatal(err)
	}
	if msg != msgNoCars {
		t.Fatalf("reply = %q", msg)
	}
}

func TestSingleStatus(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[0], "U2", at(12))

	msg := f.say(t, "U1", "status ab-123")
	if !strings.Contains(msg, "AVAILABLE NOW | Next booking: 2025-06-02 12:00") || !strings.Contains(msg, "upcoming: 2025-06-02 12:00 to 14:00") {
		t.Errorf("reply = %q", msg)
	}

	msg = f.say(t, "U1", "status ZZ-999")
	if msg != "<@U1> "+msgCarDoesNotExist {
		t.Errorf("reply = %q", msg)
	}
}

func TestReserve(t *testing.T) {
	f := newFixture(t)

	msg := f.say(t, "U1", "reserve AB-123 2025-06-02 14:00")
	if msg != "<@U1> Toyota Camry (AB-123) is yours from 2025-06-02 14:00 to 16:00 (reservation #1)" {
		t.Fatalf("reply = %q", msg)
	}
	rs, _ := f.data.ReservationsFor(context.Background(), f.cars[0].ID)
	if len(rs) != 1 || rs[0].RequesterID != "U1" || !rs[0].Start.Equal(at(14)) {
		t.Fatalf("stored = %+v", rs)
	}

	tests := []struct {
		text string
		want string
	}{
		{"reserve AB-123 2025-06-02 14:00", msgSlotTaken},
		{"reserve AB-123 2025-06-02 15:00", "bookings start on the slot grid: 08:00, 10:00, 12:00, 14:00, 16:00"},
		{"reserve AB-123 2025-06-02 08:00", msgBookingInPast},
		{"reserve ZZ-999 2025-06-02 16:00", msgCarDoesNotExist},
		{"reserve AB-123 2025-13-02 16:00", "`2025-13-02 16:00` is not a date and time I understand, use `YYYY-MM-DD HH:MM`"},
	}
	for _, tt := range tests {
		if msg := f.dm(t, "U2", tt.text); msg != tt.want {
			t.Errorf("%q: reply = %q, want %q", tt.text, msg, tt.want)
		}
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, f.cars[0], "U1", at(14))

	if msg := f.dm(t, "U2", "cancel 1"); msg != "reservation #1 belongs to someone else" {
		t.Errorf("reply = %q", msg)
	}
	if msg := f.dm(t, "U1", "cancel #1"); msg != "you cancelled reservation #1 for Toyota Camry (AB-123) at 2025-06-02 14:00" {
		t.Errorf("reply = %q", msg)
	}
	if _, err := f.data.GetReservation(context.Background(), r.ID); err == nil {
		t.Error("reservation still stored")
	}
	if msg := f.dm(t, "U1", "cancel 1"); msg != msgReservationNotFound {
		t.Errorf("reply = %q", msg)
	}
}

func TestMyStatus(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[0], "U1", at(8))
	f.book(t, f.cars[1], "U1", at(9))
	f.book(t, f.cars[2], "U1", at(16))
	f.book(t, f.cars[0], "U2", at(12))

	msg := f.dm(t, "U1", "my status")
	want := "1st: Honda Civic (CD-456) from 2025-06-02 09:00 to 11:00, reservation #2 (in progress)\n" +
		"2nd: Kia Rio (EF-789) from 2025-06-02 16:00 to 18:00, reservation #3"
	if msg != want {
		t.Errorf("reply = %q, want %q", msg, want)
	}

	if msg := f.dm(t, "U2", "my status"); !strings.HasPrefix(msg, "1st: Toyota Camry") {
		t.Errorf("reply = %q", msg)
	}
}

func TestAssist(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[0], "U1", at(10))

	msg := f.dm(t, "U1", "Which cars are free right now? And show my bookings")
	if !strings.Contains(msg, "Summary: 2 available now | 1 currently booked") {
		t.Errorf("missing fleet section:\n%s", msg)
	}
	if !strings.Contains(msg, "*Your bookings*\n1st: Toyota Camry") {
		t.Errorf("missing bookings section:\n%s", msg)
	}

	if msg := f.dm(t, "U1", "what are the stats?"); !strings.Contains(msg, "Cars: 3 | Bookings: 1 | Active users: 1") {
		t.Errorf("reply = %q", msg)
	}
	if msg := f.dm(t, "U1", "hello there"); msg != msgNothingToSay {
		t.Errorf("reply = %q", msg)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[0], "U1", at(8))
	f.book(t, f.cars[0], "U1", at(12))

	msg := f.say(t, "U1", "report 1")
	for _, want := range []string{
		"*Utilization over the last 1 day(s)* (5 slots per car per day)",
		"Toyota Camry (AB-123): 2 booking(s), 40.00%",
		"Honda Civic (CD-456): 0 booking(s), 0.00%",
		"2025-06-02: 2 booking(s), 100.00",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
	if msg := f.say(t, "U1", "report 0"); msg != "`0` is not a number of days" {
		t.Errorf("reply = %q", msg)
	}
}

func TestBookingReports(t *testing.T) {
	f := newFixture(t)
	early := f.book(t, f.cars[0], "U1", at(8))
	noon := f.book(t, f.cars[1], "U2", at(12))
	f.book(t, f.cars[0], "U1", at(8).AddDate(0, 0, 1))

	tests := []struct {
		text string
		want []string
	}{
		{"summary", []string{
			"Total: 3 | Today: 2 | This week: 3 | This month: 3",
			"Cars: 3 | Users with bookings: 2",
		}},
		{"activity", []string{
			"1st: <@U1> 2 booking(s), last 2025-06-03 08:00",
			"2nd: <@U2> 1 booking(s), last 2025-06-02 12:00",
		}},
		{"slots 1", []string{
			"*Popular slots over the last 1 day(s)*\n08:00: 1 booking(s)\n12:00: 1 booking(s)",
		}},
		{"bookings 2025-06-02", []string{
			"*Bookings on 2025-06-02*",
			fmt.Sprintf("#%d | 2025-06-02 12:00 | Honda Civic (CD-456) | <@U2>\n#%d | 2025-06-02 08:00 | Toyota Camry (AB-123) | <@U1>", noon.ID, early.ID),
		}},
		{"bookings 2025-06-05 2025-06-09", []string{"*Bookings from 2025-06-05 to 2025-06-09*\nno bookings"}},
	}
	for _, tt := range tests {
		msg := f.say(t, "U1", tt.text)
		for _, want := range tt.want {
			if !strings.Contains(msg, want) {
				t.Errorf("%q missing %q:\n%s", tt.text, want, msg)
			}
		}
	}

	for text, want := range map[string]string{
		"activity 0":                     "`0` is not a positive number",
		"slots 0":                        "`0` is not a number of days",
		"bookings 2025-13-01":            "`2025-13-01` is not a date I understand, use `YYYY-MM-DD`",
		"bookings 2025-06-03 2025-06-02": "`2025-06-02` is before `2025-06-03`",
	} {
		if msg := f.say(t, "U1", text); msg != want {
			t.Errorf("%q: reply = %q", text, msg)
		}
	}
}

func TestOverlapIsReported(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.cars[0], "U1", at(10))
	// corrupt the store behind the booking check
	f.data.Reservations[f.cars[0].ID] = append(f.data.Reservations[f.cars[0].ID],
		&models.Reservation{ID: 99, ResourceID: f.cars[0].ID, RequesterID: "U2", Start: at(11)})

	if msg := f.dm(t, "U1", "status"); msg != msgConflictingRecords {
		t.Errorf("reply = %q", msg)
	}
}

func TestUnknownUser(t *testing.T) {
	f := newFixture(t)
	if msg := f.dm(t, "U404", "my status"); msg != msgIDontKnow {
		t.Errorf("reply = %q", msg)
	}
}

func TestCallbackEvent(t *testing.T) {
	f := newFixture(t)

	mention := slackevents.EventsAPIEvent{InnerEvent: slackevents.EventsAPIInnerEvent{
		Data: &slackevents.AppMentionEvent{User: "U1", Channel: "C9", Text: "<@UBOT> help"},
	}}
	if err := f.h.CallbackEvent(context.Background(), mention); err != nil {
		t.Fatal(err)
	}

	im := slackevents.EventsAPIEvent{InnerEvent: slackevents.EventsAPIInnerEvent{
		Data: &slackevents.MessageEvent{User: "U1", Channel: "D9", ChannelType: "im", Text: "status"},
	}}
	if err := f.h.CallbackEvent(context.Background(), im); err != nil {
		t.Fatal(err)
	}

	// the bot's own messages and channel chatter are ignored
	for _, ev := range []*slackevents.MessageEvent{
		{Channel: "D9", ChannelType: "im", Text: "status", SubType: "bot_message"},
		{User: "U1", Channel: "C9", ChannelType: "channel", Text: "status"},
		{User: "UBOT", BotID: "B1", Channel: "D9", ChannelType: "im", Text: msgNothingToSay},
	} {
		if err := f.h.CallbackEvent(context.Background(), slackevents.EventsAPIEvent{
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: ev},
		}); err != nil {
			t.Fatal(err)
		}
	}

	if len(f.slack.posts) != 2 || f.slack.posts[0] != "C9" || f.slack.posts[1] != "D9" {
		t.Fatalf("posts = %v", f.slack.posts)
	}
}
