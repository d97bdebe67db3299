package consumers

import (
	"fmt"

	"github.com/nats-io/stan.go"

	"minischeduler/internal/cache"
	"minischeduler/internal/config"
	"minischeduler/internal/logger"
	"minischeduler/internal/messaging"
)

const queueGroup = "reservation-consumers"

type ConsumerService struct {
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	cs := &ConsumerService{nats: natsClient}

	var summaries SummaryInvalidator
	if cfg.Valkey.Enabled {
		vc, err := cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			logger.Get().Warn("Valkey unavailable, summaries will expire on their own", "error", err)
		} else {
			cs.valkey = vc
			summaries = vc
		}
	}
	cs.handlers = NewHandlers(summaries)
	return cs, nil
}

// Start subscribes the handlers to every subject in subjects.
func (cs *ConsumerService) Start(subjects []string) error {
	logger.Get().Info("Starting NATS consumers", "subjects", subjects, "queue", queueGroup)

	for _, subject := range subjects {
		sub, err := cs.nats.SubscribeQueue(subject, queueGroup, cs.handlers.HandleReservationEvent)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	logger.Get().Info("All consumers started successfully")
	return nil
}

// Shutdown closes subscriptions without removing their durable state.
func (cs *ConsumerService) Shutdown() {
	log := logger.Get()
	log.Info("Shutting down consumer service")

	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			log.Error("Error closing subscription", "error", err)
		}
	}
	if err := cs.nats.Close(); err != nil {
		log.Error("Error closing NATS connection", "error", err)
	}
	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}
}
