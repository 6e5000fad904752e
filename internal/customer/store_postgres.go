package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"aerostore/pkg/email"
	"aerostore/pkg/platform/sentinel"
	"aerostore/pkg/platform/tx"
)

// PostgresStore persists customers. Calls join an ambient checkout
// transaction when the context carries one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByEmail(ctx context.Context, addr string) (Customer, error) {
	return s.scanOne(ctx,
		`SELECT id, name, email, COALESCE(password_hash, ''), created_at
		 FROM customers WHERE email = $1`, email.Fold(addr))
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Customer, error) {
	return s.scanOne(ctx,
		`SELECT id, name, email, COALESCE(password_hash, ''), created_at
		 FROM customers WHERE id = $1`, id)
}

func (s *PostgresStore) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO customers (name, email, password_hash, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), now()) RETURNING id`,
		c.Name, email.Fold(c.Email), c.PasswordHash).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("customer %s: %w", email.Fold(c.Email), sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, c Customer) error {
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE customers SET name = $2, password_hash = NULLIF($3, '') WHERE id = $1`,
		c.ID, c.Name, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("customer %d: %w", c.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, arg any) (Customer, error) {
	var c Customer
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, arg).
		Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer: %w", sentinel.ErrNotFound)
		}
		return Customer{}, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}
