// Package journal records messages delivered over a pubsub bus. A
// journal.Subscriber is an ordinary bus handler that appends each message
// it receives to a Store, giving callers an inspectable history of what
// was delivered. It does not change any bus guarantee: messages published
// before the subscriber was registered are never journaled.
package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Record is a single journaled message.
type Record struct {
	// ID uniquely identifies the record.
	ID string

	// Topic is the topic the message was published on.
	Topic string

	// Seq is the per-topic sequence number, assigned by the store on
	// append. Starts at 1.
	Seq uint64

	// Payload is the JSON encoding of the published data.
	Payload json.RawMessage

	// Time is when the message was journaled.
	Time time.Time
}

// Store persists journal records.
type Store interface {
	// Append stores a record, assigning its per-topic Seq.
	Append(ctx context.Context, rec Record) error

	// List returns records for a topic, optionally filtered.
	// afterSeq: return records with Seq > afterSeq (0 means all)
	// limit: max records to return (0 means no limit)
	List(ctx context.Context, topic string, afterSeq uint64, limit int) ([]Record, error)

	// LatestSeq returns the highest Seq for a topic (0 if no records).
	LatestSeq(ctx context.Context, topic string) (uint64, error)
}
