package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/lock"
	"courtsync/internal/logger"
	"courtsync/internal/models"
	"courtsync/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Lock keys, one per reconciler kind.
const (
	LockKeyCourts   = "ayo-sync:courts"
	LockKeyBookings = "ayo-sync:bookings"
)

const (
	listenerTimeout = 10 * time.Second
	itemSavepoint   = "ayo_sync_item"
)

// RunListener is told about every finished run. Errors are logged and
// otherwise ignored.
type RunListener interface {
	Name() string
	SyncFinished(ctx context.Context, run *models.SyncRun) error
}

type triggerKey struct{}

// WithTrigger tags runs started with ctx (api, cli, scheduler, nats).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "unknown"
}

type options struct {
	isolation *FailureIsolation
	listeners []RunListener
	location  *time.Location
	now       func() time.Time
	hasher    func(string) (string, error)
}

type Option func(*options)

func WithIsolation(f FailureIsolation) Option {
	return func(o *options) { o.isolation = &f }
}

func WithListeners(listeners ...RunListener) Option {
	return func(o *options) { o.listeners = append(o.listeners, listeners...) }
}

// WithLocation sets the zone AYO's wall-clock booking times are read in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, location: time.UTC, hasher: hashPassword}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// runner wraps one reconciliation in the lock, a span, a run id and the
// listener fan-out.
type runner struct {
	kind      string
	lockKey   string
	locker    lock.Locker
	listeners []RunListener
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func newRunner(kind, lockKey string, locker lock.Locker, log *slog.Logger, o options) *runner {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &runner{
		kind:      kind,
		lockKey:   lockKey,
		locker:    locker,
		listeners: o.listeners,
		logger:    log,
		tracer:    otel.Tracer("courtsync/service"),
		now:       o.now,
	}
}

type reconcileFunc func(ctx context.Context, log *slog.Logger, stats *models.SyncStats) error

func (r *runner) run(ctx context.Context, params map[string]any, fn reconcileFunc) (*models.SyncStats, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := logger.From(ctx, r.logger).With("kind", r.kind)

	ctx, span := r.tracer.Start(ctx, "sync."+r.kind, trace.WithAttributes(
		attribute.String("sync.run_id", runID),
		attribute.String("sync.trigger", triggerFrom(ctx)),
	))
	defer span.End()

	run := &models.SyncRun{
		ID:        runID,
		Kind:      r.kind,
		Trigger:   triggerFrom(ctx),
		Params:    params,
		StartedAt: r.now(),
	}
	stats := models.NewSyncStats()

	log.Info("Sync started", "trigger", run.Trigger, "params", params)
	err := r.locked(ctx, log, func() error { return fn(ctx, log, stats) })

	if err != nil {
		stats.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		stats.Success = true
	}

	run.FinishedAt = r.now()
	run.Stats = stats
	span.SetAttributes(
		attribute.Int("sync.created", stats.Created),
		attribute.Int("sync.updated", stats.Updated),
		attribute.Int("sync.skipped", stats.Skipped),
		attribute.Int("sync.errors", len(stats.Errors)),
	)

	log.Info("Sync finished",
		"success", stats.Success,
		"dry_run", stats.DryRun,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", len(stats.Errors),
		"discarded", stats.Discarded,
		"duration", run.Duration(),
	)

	r.notify(ctx, log, run)
	return stats, err
}

func (r *runner) locked(ctx context.Context, log *slog.Logger, fn func() error) error {
	unlock, err := r.locker.TryLock(ctx, r.lockKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrSyncInProgress) {
			log.Warn("Sync already running, skipping", "lock", r.lockKey)
		} else {
			log.Error("Failed to acquire sync lock", "lock", r.lockKey, "error", err)
		}
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Error("Failed to release sync lock", "lock", r.lockKey, "error", err)
		}
	}()

	return fn()
}

func (r *runner) notify(ctx context.Context, log *slog.Logger, run *models.SyncRun) {
	for _, l := range r.listeners {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listenerTimeout)
		if err := l.SyncFinished(lctx, run); err != nil {
			log.Warn("Sync listener failed", "listener", l.Name(), "error", err)
		}
		cancel()
	}
}

// isolate runs one item under a savepoint so a failed statement does not
// poison the surrounding transaction for the items after it.
func isolate(ctx context.Context, tx repository.Tx, fn func() error) error {
	if err := tx.Savepoint(ctx, itemSavepoint); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := tx.RollbackToSavepoint(ctx, itemSavepoint); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		if relErr := tx.ReleaseSavepoint(ctx, itemSavepoint); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}
	return tx.ReleaseSavepoint(ctx, itemSavepoint)
}
