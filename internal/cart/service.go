package cart

import (
	"context"
	"errors"

	"aerostore/internal/catalog"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/sentinel"
)

// Service implements cart mutations with the soft stock clamp. The clamp is a
// UX convenience; checkout re-validates stock inside its transaction, which
// is the authoritative check.
type Service struct {
	catalog   catalog.Store
	persisted PersistedStore
}

func NewService(catalogStore catalog.Store, persisted PersistedStore) *Service {
	return &Service{catalog: catalogStore, persisted: persisted}
}

// SetQuantity sets a cart entry. Quantities <= 0 remove the entry; positive
// quantities are clamped to live stock. Returns true when the stored quantity
// was adjusted down.
func (s *Service) SetQuantity(ctx context.Context, c Cart, sku string, qty int) (bool, error) {
	if qty <= 0 {
		c.Set(sku, 0)
		return false, nil
	}
	product, err := s.lookup(ctx, sku)
	if err != nil {
		return false, err
	}
	if qty > product.Stock {
		c.Set(sku, product.Stock)
		return true, nil
	}
	c.Set(sku, qty)
	return false, nil
}

// AddQuantity adds delta to the current quantity, clamping to live stock.
// Returns true when the result was clamped; the caller surfaces this as a
// non-fatal "quantity adjusted" notice.
func (s *Service) AddQuantity(ctx context.Context, c Cart, sku string, delta int) (bool, error) {
	product, err := s.lookup(ctx, sku)
	if err != nil {
		return false, err
	}
	want := c.Quantity(sku) + delta
	if want <= 0 {
		c.Set(sku, 0)
		return false, nil
	}
	if want > product.Stock {
		c.Set(sku, product.Stock)
		return true, nil
	}
	c.Set(sku, want)
	return false, nil
}

// Load returns the customer's saved cart, empty when none exists.
func (s *Service) Load(ctx context.Context, customerID int64) (Cart, error) {
	c, err := s.persisted.Load(ctx, customerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return New(), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "could not load saved cart")
	}
	return c, nil
}

// Persist overwrites the customer's saved cart.
func (s *Service) Persist(ctx context.Context, customerID int64, c Cart) error {
	if err := s.persisted.Save(ctx, customerID, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not save cart")
	}
	return nil
}

// Clear overwrites the customer's saved cart with an empty one. Called after
// a committed order.
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	return s.Persist(ctx, customerID, New())
}

// MergeOnLogin combines the anonymous session cart with the customer's saved
// cart and persists the result. Returns the merged cart, which becomes the
// session cart going forward.
func (s *Service) MergeOnLogin(ctx context.Context, sessionCart Cart, customerID int64) (Cart, error) {
	stored, err := s.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	merged := Merge(sessionCart, stored)
	if err := s.Persist(ctx, customerID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) lookup(ctx context.Context, sku string) (catalog.Product, error) {
	product, err := s.catalog.BySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return catalog.Product{}, dErrors.Newf(dErrors.CodeNotFound, "unknown product %s", catalog.NormalizeSKU(sku))
		}
		return catalog.Product{}, dErrors.Wrap(err, dErrors.CodePersistence, "catalog unavailable")
	}
	return product, nil
}
