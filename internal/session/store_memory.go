package session

import (
	"context"
	"fmt"
	"sync"

	"aerostore/pkg/platform/sentinel"
)

// InMemoryStore keeps session records in process memory. No TTL eviction; the
// guard handles lifecycle, and tests control time explicitly.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Find(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	rec.Cart = rec.Cart.Clone()
	return rec, nil
}

func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Cart = rec.Cart.Clone()
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
