package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"

	"minischeduler/internal/logger"
)

// Publisher delivers domain events to a subject.
type Publisher interface {
	Publish(subject string, data any) error
}

type Config struct {
	Enabled   bool
	URL       string
	ClusterID string
	ClientID  string
}

type NATSClient struct {
	conn stan.Conn
}

func NewNATSClient(cfg Config) (*NATSClient, error) {
	// Streaming rejects a second connection with the same client id.
	uniqueClientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, uniqueClientID,
		stan.NatsURL(cfg.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			logger.Get().Error("NATS Streaming connection lost", "error", reason)
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	logger.Get().Info("Connected to NATS Streaming",
		"url", cfg.URL,
		"cluster", cfg.ClusterID,
		"client", uniqueClientID)

	return &NATSClient{conn: conn}, nil
}

func (nc *NATSClient) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	logger.Get().Debug("Published message", "subject", subject)
	return nil
}

// SubscribeQueue creates a durable queue subscription with manual acks.
func (nc *NATSClient) SubscribeQueue(subject, queue string, handler stan.MsgHandler) (stan.Subscription, error) {
	sub, err := nc.conn.QueueSubscribe(subject, queue, handler,
		stan.DurableName(subject+"-"+queue+"-durable"),
		stan.SetManualAckMode(),
		stan.AckWait(30*time.Second),
		stan.MaxInflight(1))
	if err != nil {
		return nil, fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	logger.Get().Info("Subscribed to subject", "subject", subject, "queue", queue)
	return sub, nil
}

func (nc *NATSClient) Close() error {
	if nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}

// Noop drops every message. Used when NATS is disabled.
type Noop struct{}

func (Noop) Publish(string, any) error { return nil }
