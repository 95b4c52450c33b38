package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"courtsync/internal/models"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

// Publisher is the part of NATSClient the sync listeners need.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type NATSClient struct {
	conn   stan.Conn
	logger *slog.Logger
}

type Config struct {
	URL       string `envconfig:"NATS_URL"`
	ClusterID string `envconfig:"NATS_CLUSTER_ID" default:"test-cluster"`
	ClientID  string `envconfig:"NATS_CLIENT_ID" default:"courtsync"`
}

func (c Config) Enabled() bool {
	return c.URL != ""
}

func NewNATSClient(cfg Config, logger *slog.Logger) (*NATSClient, error) {
	// Generate unique client ID to avoid conflicts between replicas
	uniqueClientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, uniqueClientID,
		stan.NatsURL(cfg.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			logger.Error("NATS Streaming connection lost", "error", reason)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	logger.Info("Connected to NATS Streaming",
		"url", cfg.URL, "cluster", cfg.ClusterID, "client", uniqueClientID)

	return &NATSClient{conn: conn, logger: logger}, nil
}

func (nc *NATSClient) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	nc.logger.Debug("Published message", "subject", subject)
	return nil
}

// SubscribeQueue delivers one message at a time per queue member, with
// manual acks so a crashed worker's message is redelivered.
func (nc *NATSClient) SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error) {
	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(subject+"-"+queue+"-durable"),
		stan.AckWait(5*time.Minute),
		stan.MaxInflight(1),
		stan.SetManualAckMode())
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	nc.logger.Info("Subscribed to subject", "subject", subject, "queue", queue)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}

// Listener publishes a SyncCompletedEvent for every finished run.
type Listener struct {
	publisher Publisher
}

func NewListener(publisher Publisher) *Listener {
	return &Listener{publisher: publisher}
}

func (l *Listener) Name() string { return "nats" }

func (l *Listener) SyncFinished(_ context.Context, run *models.SyncRun) error {
	return l.publisher.Publish(models.SubjectSyncCompleted, models.NewSyncCompletedEvent(run))
}
