package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/models"
	"courtsync/internal/service"
)

const dateLayout = "2006-01-02"

type CourtSyncer interface {
	Sync(ctx context.Context, activeOnly, dryRun bool) (*models.SyncStats, error)
}

type BookingSyncer interface {
	Sync(ctx context.Context, filters map[string]string) (*models.SyncStats, error)
}

type Config struct {
	Interval   time.Duration
	ActiveOnly bool
	DaysBack   int
	DaysAhead  int
	Location   *time.Location
}

// SyncJob periodically syncs courts and then bookings for a rolling window
// of dates around today.
type SyncJob struct {
	courts   CourtSyncer
	bookings BookingSyncer
	config   Config
	logger   *slog.Logger
	now      func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSyncJob(courts CourtSyncer, bookings BookingSyncer, cfg Config, log *slog.Logger) *SyncJob {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SyncJob{
		courts:   courts,
		bookings: bookings,
		config:   cfg,
		logger:   log.With("component", "sync_job"),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs once immediately and then on every tick until Stop.
// A non-positive interval runs the immediate pass only.
func (j *SyncJob) Start(ctx context.Context) {
	j.logger.Info("Starting sync job",
		"interval", j.config.Interval,
		"days_back", j.config.DaysBack,
		"days_ahead", j.config.DaysAhead)

	j.wg.Add(1)
	if j.config.Interval <= 0 {
		j.logger.Warn("Sync job interval is not positive, running once", "interval", j.config.Interval)
		go func() {
			defer j.wg.Done()
			j.RunOnce(ctx)
		}()
		return
	}

	j.ticker = time.NewTicker(j.config.Interval)
	go func() {
		defer j.wg.Done()
		j.RunOnce(ctx)
		for {
			select {
			case <-j.ticker.C:
				j.RunOnce(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				j.logger.Info("Sync job stopped")
				return
			}
		}
	}()
}

// Stop waits for a run in progress to finish. It is safe to call more than once.
func (j *SyncJob) Stop() {
	j.stopOnce.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
	})
	j.wg.Wait()
}

// RunOnce syncs courts first so bookings for newly added fields resolve.
func (j *SyncJob) RunOnce(ctx context.Context) {
	ctx = service.WithTrigger(ctx, models.TriggerScheduler)

	if _, err := j.courts.Sync(ctx, j.config.ActiveOnly, false); err != nil {
		j.logResult("courts", err)
		if apperrors.IsRemote(err) {
			// Same vendor, same outage.
			return
		}
	}

	if _, err := j.bookings.Sync(ctx, j.Window()); err != nil {
		j.logResult("bookings", err)
	}
}

// Window is the booking_date range for the next run, in the venue zone.
func (j *SyncJob) Window() map[string]string {
	today := j.now().In(j.config.Location)
	return map[string]string{
		"start_date": today.AddDate(0, 0, -j.config.DaysBack).Format(dateLayout),
		"end_date":   today.AddDate(0, 0, j.config.DaysAhead).Format(dateLayout),
	}
}

func (j *SyncJob) logResult(kind string, err error) {
	if errors.Is(err, apperrors.ErrSyncInProgress) {
		j.logger.Info("Scheduled sync skipped, another run holds the lock", "kind", kind)
		return
	}
	j.logger.Error("Scheduled sync failed", "kind", kind, "error", err)
}
