package cart

import (
	"context"
	"fmt"
	"sync"

	"aerostore/pkg/platform/sentinel"
)

// InMemoryPersistedStore keeps saved carts in process memory for tests.
type InMemoryPersistedStore struct {
	mu    sync.RWMutex
	carts map[int64]Cart
}

func NewInMemoryPersistedStore() *InMemoryPersistedStore {
	return &InMemoryPersistedStore{carts: make(map[int64]Cart)}
}

func (s *InMemoryPersistedStore) Load(_ context.Context, customerID int64) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[customerID]
	if !ok {
		return nil, fmt.Errorf("cart for customer %d: %w", customerID, sentinel.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *InMemoryPersistedStore) Save(_ context.Context, customerID int64, c Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = c.Clone()
	return nil
}
