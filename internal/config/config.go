package config

import (
	"fmt"
	"time"

	"courtsync/internal/database"
	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/messaging"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	Port           string        `envconfig:"PORT" default:"8081"`
	GinMode        string        `envconfig:"GIN_MODE" default:"release"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`
	AdminToken     string        `envconfig:"ADMIN_TOKEN"`

	// Local time zone of the venue; AYO sends wall-clock dates and times.
	VenueTimezone string `envconfig:"VENUE_TIMEZONE" default:"Asia/Jakarta"`

	Database      database.Config
	NATS          messaging.Config
	AYO           ayo.Config
	Lock          lock.Config
	Elasticsearch ElasticsearchConfig
	Sync          SyncConfig
	Scheduler     SchedulerConfig
	Tracing       TracingConfig
}

// SyncConfig selects the failure isolation policy per reconciler.
type SyncConfig struct {
	CourtIsolation   string `envconfig:"COURT_SYNC_ISOLATION" default:"all-or-nothing"`
	BookingIsolation string `envconfig:"BOOKING_SYNC_ISOLATION" default:"best-effort"`
}

// SchedulerConfig drives the periodic sync job in cmd/consumers.
type SchedulerConfig struct {
	Enabled          bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	Interval         time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"15m"`
	ActiveOnly       bool          `envconfig:"SCHEDULER_ACTIVE_ONLY" default:"true"`
	BookingDaysBack  int           `envconfig:"SCHEDULER_BOOKING_DAYS_BACK" default:"1"`
	BookingDaysAhead int           `envconfig:"SCHEDULER_BOOKING_DAYS_AHEAD" default:"14"`
}

type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"courtsync"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the sync job cannot run with.
func (c SchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", c.Interval)
	}
	if c.BookingDaysBack < 0 || c.BookingDaysAhead < 0 {
		return fmt.Errorf("scheduler booking window must not be negative")
	}
	return nil
}

// Location resolves VenueTimezone, falling back to UTC for an unknown zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
