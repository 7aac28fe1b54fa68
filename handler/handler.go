package handler

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/availability"
	"github.com/ZiyadSefiri/Car-Check-Service/data"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/ZiyadSefiri/Car-Check-Service/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var mention = regexp.MustCompile(`^\<\@[A-Z0-9]+\>\s*`)

// Messenger is the part of *slack.Client the handler uses.
type Messenger interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	GetUserInfo(user string) (*slack.User, error)
}

type Options struct {
	Location   *time.Location
	Clock      func() time.Time
	WindowDays int
	Price      decimal.Decimal
}

type Handler struct {
	client  Messenger
	data    data.DataManager
	calc    *availability.Calculator
	reports *report.Reporter

	loc        *time.Location
	clock      func() time.Time
	windowDays int
	price      decimal.Decimal
}

// Event is a message addressed to the bot, either a channel mention or a
// direct message.
type Event struct {
	User        string
	Channel     string
	ChannelType string
	Text        string
}

// EventAction is one event matched to an action. Now is read once per event
// and used for every classification made while answering it.
type EventAction struct {
	Event   *Event
	Action  string
	Matches []string
	Now     time.Time
	Log     *log.Entry
}

func New(client Messenger, dm data.DataManager, calc *availability.Calculator, reports *report.Reporter, opts Options) *Handler {
	h := &Handler{
		client:     client,
		data:       dm,
		calc:       calc,
		reports:    reports,
		loc:        opts.Location,
		clock:      opts.Clock,
		windowDays: opts.WindowDays,
		price:      opts.Price,
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	if h.windowDays <= 0 {
		h.windowDays = 30
	}
	return h
}

func (h *Handler) CallbackEvent(ctx context.Context, event slackevents.EventsAPIEvent) error {
	innerEvent := event.InnerEvent
	switch ev := innerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		_, err := h.Handle(ctx, &Event{
			User:    ev.User,
			Channel: ev.Channel,
			Text:    ev.Text,
		})
		return err
	case *slackevents.MessageEvent:
		// only direct messages from people; mentions arrive as AppMentionEvent
		if ev.ChannelType != "im" || ev.User == "" || ev.SubType != "" || ev.BotID != "" {
			return nil
		}
		_, err := h.Handle(ctx, &Event{
			User:        ev.User,
			Channel:     ev.Channel,
			ChannelType: ev.ChannelType,
			Text:        ev.Text,
		})
		return err
	}

	return nil
}

// Handle answers one event and posts the reply. It returns the reply text.
func (h *Handler) Handle(ctx context.Context, ev *Event) (string, error) {
	text := strings.TrimSpace(mention.ReplaceAllString(ev.Text, ""))
	action, matches := getAction(text)
	ea := &EventAction{
		Event:   ev,
		Action:  action,
		Matches: matches,
		Now:     h.clock(),
		Log: log.WithFields(log.Fields{
			"request_id": uuid.NewString(),
			"user":       ev.User,
			"channel":    ev.Channel,
			"action":     action,
		}),
	}
	ea.Log.Debugf("handling %q", text)

	msg, address, err := h.respond(ctx, ea, text)
	if err != nil {
		msg = h.errorText(ea, err)
		address = true
	}

	return msg, h.reply(ea, msg, address)
}

func (h *Handler) respond(ctx context.Context, ea *EventAction, text string) (string, bool, error) {
	switch ea.Action {
	case "help":
		return msgHelp, false, nil
	case "all_status":
		msg, err := h.allStatus(ctx, ea)
		return msg, false, err
	case "single_status":
		msg, err := h.singleStatus(ctx, ea)
		return msg, false, err
	case "my_status":
		msg, err := h.myStatus(ctx, ea)
		return msg, true, err
	case "reserve":
		msg, err := h.reserve(ctx, ea)
		return msg, true, err
	case "cancel":
		msg, err := h.cancel(ctx, ea)
		return msg, true, err
	case "report":
		msg, err := h.report(ctx, ea)
		return msg, false, err
	case "dashboard":
		msg, err := h.dashboard(ctx, ea)
		return msg, false, err
	case "summary":
		msg, err := h.summary(ctx, ea)
		return msg, false, err
	case "activity":
		msg, err := h.activity(ctx, ea)
		return msg, false, err
	case "slots":
		msg, err := h.slots(ctx, ea)
		return msg, false, err
	case "bookings":
		msg, err := h.bookings(ctx, ea)
		return msg, false, err
	default:
		msg, err := h.assist(ctx, ea, text)
		return msg, true, err
	}
}

func (h *Handler) reply(ea *EventAction, msg string, addressUser bool) error {
	ev := ea.Event
	if addressUser && ev.ChannelType != "im" {
		msg = "<@" + ev.User + "> " + msg
	}
	_, _, err := h.client.PostMessage(ev.Channel, slack.MsgOptionText(msg, false))
	if err != nil {
		ea.Log.Errorf("%+v", err)
	}
	return err
}

func (h *Handler) getUser(uid string) (*models.Requester, error) {
	u, err := h.client.GetUserInfo(uid)
	if err != nil {
		return nil, err
	}
	name := u.RealName
	if name == "" {
		name = u.Name
	}
	return &models.Requester{
		ID:   u.ID,
		Name: name,
	}, nil
}
