// Package pubsub provides an in-process publish/subscribe message bus.
// It maintains a registry of named topics to which zero or more producers
// publish data and zero or more consumers receive it through registered
// handlers, decoupling producers from consumers: publishers need no
// knowledge of where or how many subscribers exist for a topic.
//
// The bus is in-memory and single-process. Delivery is synchronous and
// reaches only the subscribers registered at publish time; there is no
// replay, queuing, or durability. For an optional record of delivered
// messages, see the journal subpackage.
package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrTopicNotFound is returned by Subscribe and Publish when the named
	// topic was never created.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrInvalidCallback is returned by Subscribe when the handler is nil
	// or carries a nil underlying value.
	ErrInvalidCallback = errors.New("invalid callback")
)

// Config configures a Bus. The zero value is usable.
type Config struct {
	// Logger receives diagnostics such as duplicate topic creation and
	// subscriber panics. Nil means slog.Default().
	Logger *slog.Logger

	// Observer receives bus lifecycle notifications. Nil means no-op.
	Observer Observer
}

// Bus is an in-process publish/subscribe message bus. Topics must be
// created before anything can publish or subscribe to them. A Bus is safe
// for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[any]Handler // topic name -> identity key -> handler

	logger *slog.Logger
	obs    Observer
}

// New creates a Bus with the given configuration.
func New(config Config) *Bus {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	obs := config.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Bus{
		topics: make(map[string]map[any]Handler),
		logger: logger,
		obs:    obs,
	}
}

// CreateTopic ensures a topic with the given name exists. Creating the
// same topic multiple times is not an error; publishers and subscribers
// are independent and may each declare the topics they use. Once created,
// a topic exists for the lifetime of the Bus.
func (b *Bus) CreateTopic(name string) {
	b.mu.Lock()
	_, exists := b.topics[name]
	if !exists {
		b.topics[name] = make(map[any]Handler)
	}
	b.mu.Unlock()

	if exists {
		b.logger.Debug("topic already exists", "topic", name)
		return
	}
	b.obs.TopicCreated(name)
}

// Subscribe registers a handler to be invoked for every subsequent publish
// on the topic. It returns ErrTopicNotFound if the topic was never created
// and ErrInvalidCallback if the handler is nil; in both cases the registry
// is left untouched.
//
// Subscribing the identical handler twice is a no-op: the subscriber set
// is keyed on handler identity, so re-registration never causes duplicate
// deliveries.
func (b *Bus) Subscribe(topic string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return fmt.Errorf("subscribe %q: %w", topic, ErrTopicNotFound)
	}

	key, err := identityKey(h)
	if err != nil {
		b.logger.Error("rejecting subscriber", "topic", topic, "error", err)
		return fmt.Errorf("subscribe %q: %w", topic, err)
	}

	subs[key] = h
	return nil
}

// Publish synchronously delivers data to every handler currently
// subscribed to the topic, invoking each as h.Handle(topic, data) in an
// unspecified order. It returns ErrTopicNotFound if the topic was never
// created; the check happens before any handler runs.
//
// A panicking handler never affects the publisher or the other
// subscribers: the panic is recovered, logged, and reported to the
// Observer, and delivery continues. Publish returns nil whenever the
// topic exists, regardless of what subscribers do.
//
// Data is passed by reference, not copied. If a handler mutates a shared
// payload, later handlers observe the mutation; that is the callers'
// concern, not the bus's.
func (b *Bus) Publish(topic string, data any) error {
	b.mu.RLock()
	subs, ok := b.topics[topic]
	if !ok {
		b.mu.RUnlock()
		return fmt.Errorf("publish %q: %w", topic, ErrTopicNotFound)
	}

	// Snapshot the subscriber set and release the lock before invoking
	// anything, so handlers may re-enter the bus. Handlers subscribed
	// while this publish is in flight are not part of the snapshot.
	snapshot := make([]Handler, 0, len(subs))
	for _, h := range subs {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		b.deliver(topic, data, h)
	}
	b.obs.Published(topic, len(snapshot))
	return nil
}

// deliver invokes a single handler with panic containment. The recovery
// is scoped per handler so one failure cannot skip the rest of the
// subscriber set.
func (b *Bus) deliver(topic string, data any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			err := recoveredError(r)
			name := handlerName(h)
			b.logger.Error("subscriber handler panicked",
				"topic", topic,
				"handler", name,
				"error", err,
			)
			b.obs.SubscriberPanic(topic, name, err)
		}
	}()
	h.Handle(topic, data)
}

// recoveredError normalizes a recovered panic value into an error.
func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
