package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aerostore/internal/catalog"
	"aerostore/internal/customer"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/email"
	"aerostore/pkg/platform/sentinel"
)

// InMemoryStore implements Store over the in-memory catalog and customer
// stores. Used by unit tests and the demo wiring.
type InMemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	orders    map[int64]Order
	items     map[int64][]OrderItem
	catalog   *catalog.InMemoryStore
	customers *customer.InMemoryStore
}

func NewInMemory(catalogStore *catalog.InMemoryStore, customers *customer.InMemoryStore) *InMemoryStore {
	return &InMemoryStore{
		nextID:    1,
		orders:    make(map[int64]Order),
		items:     make(map[int64][]OrderItem),
		catalog:   catalogStore,
		customers: customers,
	}
}

func (s *InMemoryStore) ProductForUpdate(ctx context.Context, sku string) (catalog.Product, error) {
	return s.catalog.BySKU(ctx, sku)
}

func (s *InMemoryStore) ResolveCustomer(ctx context.Context, contactEmail, displayName string) (customer.Customer, error) {
	c, err := s.customers.FindByEmail(ctx, contactEmail)
	if err == nil {
		if displayName != "" && displayName != c.Name {
			c.Name = displayName
			if err := s.customers.Update(ctx, c); err != nil {
				return customer.Customer{}, err
			}
		}
		return c, nil
	}
	if displayName == "" {
		displayName = email.DeriveDisplayName(contactEmail)
	}
	c = customer.Customer{Name: displayName, Email: email.Fold(contactEmail)}
	id, err := s.customers.Create(ctx, c)
	if err != nil {
		return customer.Customer{}, err
	}
	c.ID = id
	return c, nil
}

func (s *InMemoryStore) InsertOrder(_ context.Context, order *Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = s.nextID
	s.nextID++
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	s.orders[order.ID] = *order
	return order.ID, nil
}

func (s *InMemoryStore) InsertOrderItems(_ context.Context, orderID int64, items []OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	s.items[orderID] = append(s.items[orderID], items...)
	return nil
}

func (s *InMemoryStore) DecrementStock(_ context.Context, productID int64, quantity int) error {
	return s.catalog.DecrementStock(productID, quantity)
}

func (s *InMemoryStore) OrderByID(_ context.Context, orderID int64) (Order, []OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, nil, fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
	}
	return o, append([]OrderItem{}, s.items[orderID]...), nil
}

func (s *InMemoryStore) ListOrders(_ context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *InMemoryStore) UpdateOrderStatus(_ context.Context, orderID int64, from, to OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %d was not %s: %w", orderID, from, sentinel.ErrConflict)
	}
	o.Status = to
	s.orders[orderID] = o
	return nil
}

func (s *InMemoryStore) UpdateExportLicense(_ context.Context, orderID int64, status ExportLicenseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
	}
	o.ExportLicenseStatus = status
	s.orders[orderID] = o
	return nil
}

// OrderCount reports committed orders; test hook.
func (s *InMemoryStore) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// defaultMemoryTxTimeout bounds an in-memory transaction the same way the
// postgres runner bounds a real one.
const defaultMemoryTxTimeout = 5 * time.Second

// InMemoryTx serializes transactions with one coarse lock. The engine
// validates stock before writing anything, so serialized execution gives the
// same all-or-nothing behavior a database transaction would.
type InMemoryTx struct {
	mu      sync.Mutex
	store   *InMemoryStore
	timeout time.Duration
}

func NewInMemoryTx(store *InMemoryStore) *InMemoryTx {
	return &InMemoryTx{store: store}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMemoryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(t.store)
}
