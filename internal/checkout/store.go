package checkout

import (
	"context"

	"aerostore/internal/catalog"
	"aerostore/internal/customer"
)

// Store is the transactional persistence boundary for order placement. Every
// method is called inside one RunInTx scope; the postgres implementation
// wraps a *sql.Tx, the in-memory one a coarse lock.
type Store interface {
	// ProductForUpdate re-reads a product's live stock and price inside the
	// transaction, locking the row against concurrent checkouts.
	ProductForUpdate(ctx context.Context, sku string) (catalog.Product, error)
	// ResolveCustomer finds a customer by folded email or creates one. An
	// existing customer's display name is refreshed when a non-empty name is
	// given.
	ResolveCustomer(ctx context.Context, contactEmail, displayName string) (customer.Customer, error)
	InsertOrder(ctx context.Context, order *Order) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	// DecrementStock subtracts quantity, guarded so stock can never go
	// negative even if the row lock discipline is violated.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	OrderByID(ctx context.Context, orderID int64) (Order, []OrderItem, error)
	// ListOrders returns order summaries newest first, sensitive columns
	// untouched.
	ListOrders(ctx context.Context) ([]Order, error)
	// UpdateOrderStatus writes the new status only if the order still holds
	// the status the caller observed; a stale expectation is ErrConflict.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to OrderStatus) error
	UpdateExportLicense(ctx context.Context, orderID int64, status ExportLicenseStatus) error
}

// StoreTx runs fn inside one atomic transaction. Any error from fn rolls the
// whole transaction back; fn never performs its own commit or rollback.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}
