package customer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aerostore/pkg/email"
	"aerostore/pkg/platform/sentinel"
)

// InMemoryStore keeps customers in process memory for tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]Customer
	byEmail map[string]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID:  1,
		byID:    make(map[int64]Customer),
		byEmail: make(map[string]int64),
	}
}

func (s *InMemoryStore) FindByEmail(_ context.Context, addr string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email.Fold(addr)]
	if !ok {
		return Customer{}, fmt.Errorf("customer %s: %w", email.Fold(addr), sentinel.ErrNotFound)
	}
	return s.byID[id], nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", id, sentinel.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryStore) Create(_ context.Context, c Customer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folded := email.Fold(c.Email)
	if _, exists := s.byEmail[folded]; exists {
		return 0, fmt.Errorf("customer %s: %w", folded, sentinel.ErrConflict)
	}
	c.ID = s.nextID
	s.nextID++
	c.Email = folded
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.byID[c.ID] = c
	s.byEmail[folded] = c.ID
	return c.ID, nil
}

func (s *InMemoryStore) Update(_ context.Context, c Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[c.ID]
	if !ok {
		return fmt.Errorf("customer %d: %w", c.ID, sentinel.ErrNotFound)
	}
	c.Email = existing.Email
	c.CreatedAt = existing.CreatedAt
	s.byID[c.ID] = c
	return nil
}
