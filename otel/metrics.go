// Package otel provides OpenTelemetry instrumentation for a pubsub bus.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tanadeau/pubsub"
)

// Metrics translates bus activity into OpenTelemetry metrics. It
// implements pubsub.Observer and is installed via pubsub.Config:
//
//	m, _ := otel.NewMetrics(meter)
//	bus := pubsub.New(pubsub.Config{Observer: m})
type Metrics struct {
	topicsCreated    metric.Int64Counter
	publishes        metric.Int64Counter
	deliveries       metric.Int64Counter
	subscriberPanics metric.Int64Counter
}

// NewMetrics creates a Metrics observer that uses the given meter to
// create instruments for recording bus activity.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	topics, err := meter.Int64Counter("pubsub.topics.created",
		metric.WithDescription("Number of topics created"),
	)
	if err != nil {
		return nil, err
	}

	publishes, err := meter.Int64Counter("pubsub.publishes",
		metric.WithDescription("Number of publish calls"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("pubsub.deliveries",
		metric.WithDescription("Number of messages delivered to subscribers"),
	)
	if err != nil {
		return nil, err
	}

	panics, err := meter.Int64Counter("pubsub.subscriber.panics",
		metric.WithDescription("Number of subscriber handlers that panicked during delivery"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		topicsCreated:    topics,
		publishes:        publishes,
		deliveries:       deliveries,
		subscriberPanics: panics,
	}, nil
}

// TopicCreated increments the topic creation counter.
func (m *Metrics) TopicCreated(topic string) {
	m.topicsCreated.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)),
	)
}

// Published increments the publish counter and records how many
// subscribers the message reached.
func (m *Metrics) Published(topic string, delivered int) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	m.publishes.Add(ctx, 1, attrs)
	m.deliveries.Add(ctx, int64(delivered), attrs)
}

// SubscriberPanic increments the subscriber failure counter.
func (m *Metrics) SubscriberPanic(topic string, handler string, err error) {
	m.subscriberPanics.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("handler", handler),
		),
	)
}

// Compile-time interface check.
var _ pubsub.Observer = (*Metrics)(nil)
