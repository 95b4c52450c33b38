package consumers

import (
	"context"
	"errors"
	"log/slog"

	"courtsync/internal/app"
	"courtsync/internal/models"

	"github.com/nats-io/stan.go"
)

const queueGroup = "courtsync-workers"

type ConsumerService struct {
	app      *app.App
	handlers *Handlers
	subs     []stan.Subscription
	logger   *slog.Logger
}

func NewConsumerService(a *app.App) *ConsumerService {
	return &ConsumerService{
		app:      a,
		handlers: NewHandlers(a.Services.Courts, a.Services.Bookings, a.Logger),
		logger:   a.Logger,
	}
}

// Start subscribes to sync requests. Without NATS there is nothing to consume.
func (cs *ConsumerService) Start() error {
	if cs.app.NATS == nil {
		cs.logger.Warn("NATS is not configured, on-demand sync requests are disabled")
		return nil
	}

	cs.logger.Info("Starting NATS consumers...")
	sub, err := cs.app.NATS.SubscribeQueue(models.SubjectSyncRequested, queueGroup, cs.handlers.HandleSyncRequested)
	if err != nil {
		return err
	}
	cs.subs = append(cs.subs, sub)

	cs.logger.Info("All consumers started successfully")
	return nil
}

// Shutdown closes the subscriptions, keeping the durable queue position, and
// then the shared connections.
func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	cs.logger.Info("Shutting down consumer service...")

	var errs []error
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cs.app.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
