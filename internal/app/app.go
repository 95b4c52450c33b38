package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"courtsync/internal/config"
	"courtsync/internal/database"
	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/messaging"
	"courtsync/internal/metrics"
	"courtsync/internal/repository"
	"courtsync/internal/search"
	"courtsync/internal/service"
)

// App holds every long-lived dependency a binary needs to run syncs.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *database.DB
	Repos    *repository.Repositories
	Locker   lock.Locker
	Client   *ayo.Client
	NATS     *messaging.NATSClient        // nil when NATS_URL is empty
	Search   *search.ElasticsearchClient // nil when ELASTICSEARCH_URL is empty
	Services *service.Services

	closers []func() error
}

// New connects to the database and the optional backends and builds the
// reconcilers. Close releases whatever was opened, also on error.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	courtIsolation, err := service.ParseFailureIsolation(cfg.Sync.CourtIsolation)
	if err != nil {
		return nil, fmt.Errorf("COURT_SYNC_ISOLATION: %w", err)
	}
	bookingIsolation, err := service.ParseFailureIsolation(cfg.Sync.BookingIsolation)
	if err != nil {
		return nil, fmt.Errorf("BOOKING_SYNC_ISOLATION: %w", err)
	}

	a := &App{Config: cfg, Logger: log}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	locker, err := lock.New(cfg.Lock, db.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create sync lock: %w", err)
	}
	a.Locker = locker
	if c, ok := locker.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	listeners := []service.RunListener{metrics.NewListener()}

	if cfg.NATS.Enabled() {
		nc, err := messaging.NewNATSClient(cfg.NATS, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.NATS = nc
		a.closers = append(a.closers, nc.Close)
		listeners = append(listeners, messaging.NewListener(nc))
	}

	if cfg.Elasticsearch.Enabled() {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			// The audit index is optional; syncs run without it.
			log.Warn("Elasticsearch unavailable, sync history disabled", "error", err)
		} else {
			a.Search = es
			listeners = append(listeners, search.NewListener(es))
		}
	}

	a.Repos = repository.NewRepositories(db)
	a.Client = ayo.NewClient(cfg.AYO, log)
	a.Services = service.NewServices(a.Repos, a.Client, locker, log, service.Settings{
		CourtIsolation:   courtIsolation,
		BookingIsolation: bookingIsolation,
		Location:         cfg.Location(),
		Listeners:        listeners,
	})

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
