package pubsub

// Observer receives bus lifecycle notifications. It is the injectable
// hook point for instrumentation such as metrics; the otel subpackage
// provides an implementation. Methods are called outside any bus lock,
// so an Observer may safely re-enter the bus, but they run on the
// caller's goroutine and should return quickly.
type Observer interface {
	// TopicCreated is called once per topic, on first creation.
	TopicCreated(topic string)

	// Published is called after a publish completes, with the number of
	// handlers the message was delivered to.
	Published(topic string, delivered int)

	// SubscriberPanic is called when a handler panics during delivery.
	// The handler string identifies the failing subscriber.
	SubscriberPanic(topic string, handler string, err error)
}

type nopObserver struct{}

func (nopObserver) TopicCreated(string) {}

func (nopObserver) Published(string, int) {}

func (nopObserver) SubscriberPanic(string, string, error) {}

// Compile-time interface check.
var _ Observer = nopObserver{}
