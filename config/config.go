package config

import (
	"os"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the service configuration
type Config struct {
	Listen   string         `yaml:"listen"`
	Timezone string         `yaml:"timezone"`
	Slack    SlackConfig    `yaml:"slack"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Classify ClassifyConfig `yaml:"classify"`
	Report   ReportConfig   `yaml:"report"`
	// Fleet seeds the memory driver
	Fleet []Car `yaml:"fleet"`
}

type SlackConfig struct {
	Token             string `yaml:"token"`
	VerificationToken string `yaml:"verification_token"`
	Debug             bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // memory, mysql or sqlite
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type ClassifyConfig struct {
	Workers int `yaml:"workers"`
}

type ReportConfig struct {
	WindowDays      int    `yaml:"window_days"`
	PricePerBooking string `yaml:"price_per_booking"`
}

type Car struct {
	Model        string `yaml:"model"`
	LicensePlate string `yaml:"license_plate"`
}

func Default() *Config {
	return &Config{
		Listen:   ":8280",
		Timezone: "Local",
		Database: DatabaseConfig{
			Driver: "memory",
			DSN:    "dev:@tcp(localhost:3306)/car_service?parseTime=true",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Classify: ClassifyConfig{
			Workers: 8,
		},
		Report: ReportConfig{
			WindowDays:      30,
			PricePerBooking: "50.00",
		},
	}
}

// Load reads path over the defaults and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, errors.Wrapf(rerr, "read config %s", path)
		}
		if uerr := yaml.Unmarshal(raw, cfg); uerr != nil {
			return nil, errors.Wrapf(uerr, "parse config %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SLACK_TOKEN"); v != "" {
		c.Slack.Token = v
	}
	if v := os.Getenv("SLACK_VERIFICATION_TOKEN"); v != "" {
		c.Slack.VerificationToken = v
	}
}

func (c *Config) Validate() error {
	if c.Slack.Token == "" {
		return errors.Wrap(err.InvalidArgument, "slack token is required")
	}
	if c.Slack.VerificationToken == "" {
		return errors.Wrap(err.InvalidArgument, "slack verification token is required")
	}
	switch c.Database.Driver {
	case "memory":
	case "mysql", "sqlite":
		if c.Database.DSN == "" {
			return errors.Wrapf(err.InvalidArgument, "database dsn is required for %s", c.Database.Driver)
		}
	default:
		return errors.Wrapf(err.InvalidArgument, "unknown database driver %q", c.Database.Driver)
	}
	if _, lerr := c.Location(); lerr != nil {
		return lerr
	}
	if c.Classify.Workers <= 0 {
		return errors.Wrapf(err.InvalidArgument, "classify workers must be positive, got %d", c.Classify.Workers)
	}
	if c.Report.WindowDays <= 0 {
		return errors.Wrapf(err.InvalidArgument, "report window must be positive, got %d", c.Report.WindowDays)
	}
	if _, perr := c.Price(); perr != nil {
		return perr
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, lerr := time.LoadLocation(c.Timezone)
	if lerr != nil {
		return nil, errors.Wrapf(err.InvalidArgument, "timezone %q: %v", c.Timezone, lerr)
	}
	return loc, nil
}

func (c *Config) Price() (decimal.Decimal, error) {
	p, perr := decimal.NewFromString(c.Report.PricePerBooking)
	if perr != nil {
		return decimal.Zero, errors.Wrapf(err.InvalidArgument, "price per booking %q: %v", c.Report.PricePerBooking, perr)
	}
	if p.IsNegative() {
		return decimal.Zero, errors.Wrapf(err.InvalidArgument, "price per booking %q is negative", c.Report.PricePerBooking)
	}
	return p, nil
}
