package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/availability"
	"github.com/ZiyadSefiri/Car-Check-Service/config"
	"github.com/ZiyadSefiri/Car-Check-Service/data"
	"github.com/ZiyadSefiri/Car-Check-Service/handler"
	"github.com/ZiyadSefiri/Car-Check-Service/report"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

var (
	configPath string
	token      string
	challenge  string
	listen     string
)

func main() {
	flag.StringVar(&configPath, "config", "", "Path to YAML config")
	flag.StringVar(&token, "token", "", "Slack API Token")
	flag.StringVar(&challenge, "challenge", "", "Slack verification token")
	flag.StringVar(&listen, "listen", "", "Address to serve Slack events on")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	if token != "" {
		cfg.Slack.Token = token
	}
	if challenge != "" {
		cfg.Slack.VerificationToken = challenge
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%+v", err)
	}
	setupLogging(cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("%+v", err)
	}
	price, err := cfg.Price()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	api := slack.New(cfg.Slack.Token, slack.OptionDebug(cfg.Slack.Debug))
	calc := availability.New(store, availability.WithWorkers(cfg.Classify.Workers))
	h := handler.New(api, store, calc, report.New(store, loc), handler.Options{
		Location:   loc,
		WindowDays: cfg.Report.WindowDays,
		Price:      price,
	})

	http.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		body := buf.String()

		log.Debugf("Request: %s", body)

		eventsAPIEvent, err := slackevents.ParseEvent(
			json.RawMessage(body),
			slackevents.OptionVerifyToken(
				&slackevents.TokenComparator{VerificationToken: cfg.Slack.VerificationToken},
			),
		)

		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Errorf("%+v", err)
			return
		}

		switch eventsAPIEvent.Type {
		case slackevents.URLVerification:
			var r *slackevents.ChallengeResponse
			err := json.Unmarshal([]byte(body), &r)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text")
			w.Write([]byte(r.Challenge))
		case slackevents.CallbackEvent:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := h.CallbackEvent(ctx, eventsAPIEvent)
			if err != nil {
				log.Errorf("%+v", err)
			}
		default:
		}
	})

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	log.Infof("Server listening on %s", cfg.Listen)

	log.Fatal(http.ListenAndServe(cfg.Listen, nil))
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// openStore connects the configured driver. The memory driver is seeded
// with the configured fleet.
func openStore(cfg *config.Config) (data.DataManager, error) {
	if cfg.Database.Driver != "memory" {
		log.Infof("Using %s store", cfg.Database.Driver)
		s, err := data.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.AutoMigrate)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	m := data.NewMemory()
	for _, c := range cfg.Fleet {
		if _, err := m.AddResource(context.Background(), c.Model, c.LicensePlate); err != nil {
			return nil, err
		}
	}
	log.Infof("Using memory store with %d car(s)", len(cfg.Fleet))
	return m, nil
}
