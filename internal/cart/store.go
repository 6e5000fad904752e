package cart

import "context"

// PersistedStore keeps the per-customer saved cart. Save overwrites: after
// login the merged cart is written back whole, and after a successful order
// the record is overwritten with an empty cart.
type PersistedStore interface {
	Load(ctx context.Context, customerID int64) (Cart, error)
	Save(ctx context.Context, customerID int64, c Cart) error
}
