package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aerostore/pkg/platform/sentinel"
	"aerostore/pkg/platform/tx"
)

// PostgresStore persists the catalog in PostgreSQL. Reads join an ambient
// transaction when one is carried by the context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const productColumns = `id, sku, name, description, price, stock, image, created_at`

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *PostgresStore) Featured(ctx context.Context, limit int) ([]Product, error) {
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (s *PostgresStore) BySKU(ctx context.Context, sku string) (Product, error) {
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE sku = $1`, NormalizeSKU(sku))
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("product %s: %w", NormalizeSKU(sku), sentinel.ErrNotFound)
		}
		return Product{}, fmt.Errorf("product by sku: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, update ProductUpdate) error {
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			image = COALESCE($5, image)
		WHERE sku = $1`,
		NormalizeSKU(update.SKU), update.Name, update.Description, update.Price, update.Image)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("product %s: %w", NormalizeSKU(update.SKU), sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Image, &p.CreatedAt)
	return p, err
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
