package journal

import (
	"context"
	"sync"
)

// MemStore is a thread-safe in-memory journal store.
type MemStore struct {
	mu      sync.RWMutex
	records map[string][]Record // topic -> records in append order
}

// NewMemStore creates a new in-memory journal store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string][]Record),
	}
}

func (s *MemStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Seq = uint64(len(s.records[rec.Topic])) + 1
	s.records[rec.Topic] = append(s.records[rec.Topic], rec)
	return nil
}

func (s *MemStore) List(_ context.Context, topic string, afterSeq uint64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[topic]
	var result []Record

	for _, rec := range all {
		if afterSeq > 0 && rec.Seq <= afterSeq {
			continue
		}
		result = append(result, rec)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}

func (s *MemStore) LatestSeq(_ context.Context, topic string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[topic]
	if len(records) == 0 {
		return 0, nil
	}
	return records[len(records)-1].Seq, nil
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)
