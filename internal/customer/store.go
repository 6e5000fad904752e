package customer

import "context"

// Store is the customer persistence boundary. FindByEmail matches on the
// folded email; Create returns the assigned ID.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Customer, error)
	FindByID(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (int64, error)
	Update(ctx context.Context, c Customer) error
}
