package catalog

import "context"

// Store is the catalog persistence boundary. Implementations return
// sentinel.ErrNotFound (possibly wrapped) for unknown SKUs.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	Featured(ctx context.Context, limit int) ([]Product, error)
	BySKU(ctx context.Context, sku string) (Product, error)
	Update(ctx context.Context, update ProductUpdate) error
}
