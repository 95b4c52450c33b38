package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/logger"
	"courtsync/internal/models"
	"courtsync/internal/service"

	"github.com/nats-io/stan.go"
)

type CourtSyncer interface {
	Sync(ctx context.Context, activeOnly, dryRun bool) (*models.SyncStats, error)
}

type BookingSyncer interface {
	Sync(ctx context.Context, filters map[string]string) (*models.SyncStats, error)
}

// Handlers runs syncs requested over NATS.
type Handlers struct {
	courts   CourtSyncer
	bookings BookingSyncer
	logger   *slog.Logger
}

func NewHandlers(courts CourtSyncer, bookings BookingSyncer, log *slog.Logger) *Handlers {
	return &Handlers{
		courts:   courts,
		bookings: bookings,
		logger:   log,
	}
}

// HandleSyncRequested is the stan handler for ayo.sync.requested. Messages
// are acked unless the vendor was unreachable, so those get redelivered
// after the ack wait.
func (h *Handlers) HandleSyncRequested(msg *stan.Msg) {
	if h.Process(context.Background(), msg.Data) {
		if err := msg.Ack(); err != nil {
			h.logger.Error("Failed to ack sync request", "sequence", msg.Sequence, "error", err)
		}
	}
}

// Process runs one request and reports whether the message is done with.
func (h *Handlers) Process(ctx context.Context, data []byte) bool {
	var event models.SyncRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("Failed to unmarshal sync requested event", "error", err)
		return true
	}

	ctx = service.WithTrigger(ctx, models.TriggerNATS)
	ctx = logger.ContextWithRequestID(ctx, logger.NewRequestID())
	log := logger.From(ctx, h.logger).With("kind", event.Kind, "requested_by", event.RequestedBy)
	log.Info("Processing sync requested event")

	stats, err := h.run(ctx, event)
	switch {
	case err == nil:
		log.Info("Requested sync finished",
			"created", stats.Created, "updated", stats.Updated,
			"skipped", stats.Skipped, "errors", len(stats.Errors))
		return true
	case errors.Is(err, apperrors.ErrSyncInProgress):
		log.Info("Sync already running, request dropped")
		return true
	case apperrors.IsRemote(err):
		log.Warn("AYO unavailable, request will be redelivered", "error", err)
		return false
	default:
		log.Error("Requested sync failed", "error", err)
		return true
	}
}

func (h *Handlers) run(ctx context.Context, event models.SyncRequestedEvent) (*models.SyncStats, error) {
	switch event.Kind {
	case models.SyncKindCourts:
		activeOnly := true
		if event.ActiveOnly != nil {
			activeOnly = *event.ActiveOnly
		}
		return h.courts.Sync(ctx, activeOnly, event.DryRun)
	case models.SyncKindBookings:
		return h.bookings.Sync(ctx, event.Filters)
	default:
		return nil, fmt.Errorf("unknown sync kind %q", event.Kind)
	}
}
