package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/sentinel"
)

// Service exposes catalog reads and the admin product edit. It keeps
// transport parsing quirks out of the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx)
}

// Featured returns the storefront's highlighted products.
func (s *Service) Featured(ctx context.Context) ([]Product, error) {
	return s.store.Featured(ctx, 3)
}

func (s *Service) BySKU(ctx context.Context, sku string) (Product, error) {
	if NormalizeSKU(sku) == "" {
		return Product{}, dErrors.New(dErrors.CodeBadRequest, "sku is required")
	}
	p, err := s.store.BySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Product{}, dErrors.Newf(dErrors.CodeNotFound, "unknown product %s", NormalizeSKU(sku))
		}
		return Product{}, dErrors.Wrap(err, dErrors.CodePersistence, "catalog unavailable")
	}
	return p, nil
}

// AdminEdit applies a product edit from the admin form. A price that does not
// parse is skipped rather than failing the edit, matching the established
// editor behavior; other fields always apply.
func (s *Service) AdminEdit(ctx context.Context, sku, name, description, rawPrice, image string) error {
	if NormalizeSKU(sku) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "sku is required")
	}
	update := ProductUpdate{SKU: sku}
	if name = strings.TrimSpace(name); name != "" {
		update.Name = &name
	}
	if description = strings.TrimSpace(description); description != "" {
		update.Description = &description
	}
	if rawPrice = strings.TrimSpace(strings.ReplaceAll(rawPrice, ",", "")); rawPrice != "" {
		if price, err := strconv.ParseFloat(rawPrice, 64); err == nil && price >= 0 {
			update.Price = &price
		}
	}
	if image = strings.TrimSpace(image); image != "" {
		update.Image = &image
	}
	if err := s.store.Update(ctx, update); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "unknown product %s", NormalizeSKU(sku))
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not update product")
	}
	return nil
}
