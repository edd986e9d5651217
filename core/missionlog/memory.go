package missionlog

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	recs  []Record
	limit int
}

// NewMemoryStore creates a store holding at most limit records; zero keeps all.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	if s.limit > 0 && len(s.recs) > s.limit {
		s.recs = append([]Record(nil), s.recs[len(s.recs)-s.limit:]...)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	var out []Record
	for _, r := range s.recs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	return q.finish(out), nil
}

func (s *MemoryStore) Close() error { return nil }
