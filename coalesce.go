package pubsub

import (
	"sync"
	"time"
)

// CoalescerConfig controls the behavior of a Coalescer.
type CoalescerConfig struct {
	// FlushInterval is how often pending payloads are flushed to the
	// wrapped handler. Default: 100ms.
	FlushInterval time.Duration
}

// Coalescer is a Handler decorator for high-frequency topics. It keeps
// only the latest payload per topic within each flush interval; a
// background ticker delivers the pending payloads to the wrapped handler.
//
// Delivery through a Coalescer is therefore asynchronous and lossy:
// intermediate payloads within an interval are dropped. Subscribe the
// Coalescer in place of the handler it wraps.
type Coalescer struct {
	next     Handler
	interval time.Duration

	mu      sync.Mutex
	pending map[string]any // topic -> latest payload
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCoalescer creates a Coalescer that wraps next and flushes the latest
// payload per topic at the configured interval.
func NewCoalescer(next Handler, config CoalescerConfig) *Coalescer {
	interval := config.FlushInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	c := &Coalescer{
		next:     next,
		interval: interval,
		pending:  make(map[string]any),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go c.run()

	return c
}

// Handle records data as the pending payload for the topic, replacing any
// payload not yet flushed. After Close, payloads are discarded.
func (c *Coalescer) Handle(topic string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.pending[topic] = data
}

// Close flushes any pending payloads and stops the background ticker.
// It is safe to call Close multiple times.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
}

// run is the background goroutine that periodically flushes pending
// payloads.
func (c *Coalescer) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stopCh:
			// Flush whatever is still pending before exiting.
			c.flush()
			return
		}
	}
}

// flush delivers all pending payloads to the wrapped handler and clears
// the pending map.
func (c *Coalescer) flush() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}

	// Swap out the pending map so the lock is not held during delivery.
	toFlush := c.pending
	c.pending = make(map[string]any)
	c.mu.Unlock()

	for topic, data := range toFlush {
		c.next.Handle(topic, data)
	}
}

// Compile-time interface check.
var _ Handler = (*Coalescer)(nil)
