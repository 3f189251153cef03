package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tanadeau/pubsub"
)

// Subscriber writes delivered messages to a Store. It implements
// pubsub.Handler, so it is registered on a bus like any other subscriber:
//
//	bus.Subscribe("orders", journal.NewSubscriber(store, nil))
//
// Failures to encode or append are logged and swallowed; a Subscriber
// never panics and so never trips the bus's fault isolation.
type Subscriber struct {
	store  Store
	logger *slog.Logger
}

// NewSubscriber creates a new Subscriber. A nil logger means slog.Default().
func NewSubscriber(store Store, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		store:  store,
		logger: logger,
	}
}

// Handle journals a single delivered message.
func (s *Subscriber) Handle(topic string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode payload",
			"topic", topic,
			"error", err,
		)
		return
	}

	rec := Record{
		ID:      uuid.New().String(),
		Topic:   topic,
		Payload: payload,
		Time:    time.Now().UTC(),
	}
	if err := s.store.Append(context.Background(), rec); err != nil {
		s.logger.Error("failed to journal message",
			"topic", topic,
			"record_id", rec.ID,
			"error", err,
		)
	}
}

// Compile-time interface check.
var _ pubsub.Handler = (*Subscriber)(nil)
