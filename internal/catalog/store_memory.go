package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aerostore/pkg/platform/sentinel"
)

// InMemoryStore keeps the catalog in process memory. Used by tests and by
// checkout's memory store, which shares the same product table.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	products map[string]Product
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, products: make(map[string]Product)}
}

// Seed inserts products, assigning IDs in insertion order.
func (s *InMemoryStore) Seed(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		p.SKU = NormalizeSKU(p.SKU)
		if p.ID == 0 {
			p.ID = s.nextID
			s.nextID++
		} else if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		s.products[p.SKU] = p
	}
}

func (s *InMemoryStore) List(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Featured(ctx context.Context, limit int) ([]Product, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemoryStore) BySKU(_ context.Context, sku string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[NormalizeSKU(sku)]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", NormalizeSKU(sku), sentinel.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryStore) Update(_ context.Context, update ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku := NormalizeSKU(update.SKU)
	p, ok := s.products[sku]
	if !ok {
		return fmt.Errorf("product %s: %w", sku, sentinel.ErrNotFound)
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.Image != nil {
		p.Image = *update.Image
	}
	s.products[sku] = p
	return nil
}

// DecrementStock subtracts quantity for a product ID, refusing to go
// negative. Serves the in-memory checkout store.
func (s *InMemoryStore) DecrementStock(id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sku, p := range s.products {
		if p.ID != id {
			continue
		}
		if p.Stock < quantity {
			return fmt.Errorf("stock for product %d: %w", id, sentinel.ErrConflict)
		}
		p.Stock -= quantity
		s.products[sku] = p
		return nil
	}
	return fmt.Errorf("product %d: %w", id, sentinel.ErrNotFound)
}

// SetStock adjusts stock directly; test hook for inventory scenarios.
func (s *InMemoryStore) SetStock(sku string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[NormalizeSKU(sku)]; ok {
		p.Stock = stock
		s.products[NormalizeSKU(sku)] = p
	}
}
