package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"aerostore/pkg/platform/sentinel"
	"aerostore/pkg/platform/tx"
)

// PostgresPersistedStore keeps saved carts as one JSON document per customer.
// Writes join an ambient checkout transaction when present so the post-commit
// cart clear cannot race a concurrent checkout.
type PostgresPersistedStore struct {
	db *sql.DB
}

func NewPostgresPersistedStore(db *sql.DB) *PostgresPersistedStore {
	return &PostgresPersistedStore{db: db}
}

func (s *PostgresPersistedStore) Load(ctx context.Context, customerID int64) (Cart, error) {
	var raw []byte
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT items FROM customer_carts WHERE customer_id = $1`, customerID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart for customer %d: %w", customerID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c := New()
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	// Drop entries a direct write may have left invalid.
	for sku, qty := range c {
		if qty <= 0 {
			delete(c, sku)
		}
	}
	return c, nil
}

func (s *PostgresPersistedStore) Save(ctx context.Context, customerID int64, c Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = tx.Resolve(ctx, s.db).ExecContext(ctx,
		`INSERT INTO customer_carts (customer_id, items, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (customer_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`,
		customerID, raw)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
