package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aerostore/internal/catalog"
	"aerostore/internal/customer"
	"aerostore/pkg/email"
	"aerostore/pkg/platform/sentinel"
	"aerostore/pkg/platform/tx"
)

// PostgresStore implements Store over either a pool or an open transaction.
// The checkout tx runner hands out NewPostgresTx instances; admin review and
// order reads go through NewPostgres.
type PostgresStore struct {
	q tx.Querier
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

func NewPostgresTx(t *sql.Tx) *PostgresStore {
	return &PostgresStore{q: t}
}

func (s *PostgresStore) ProductForUpdate(ctx context.Context, sku string) (catalog.Product, error) {
	var p catalog.Product
	err := s.q.QueryRowContext(ctx,
		`SELECT id, sku, name, description, price, stock, image, created_at
		 FROM products WHERE sku = $1 FOR UPDATE`, catalog.NormalizeSKU(sku)).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Image, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, fmt.Errorf("product %s: %w", catalog.NormalizeSKU(sku), sentinel.ErrNotFound)
		}
		return catalog.Product{}, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ResolveCustomer(ctx context.Context, contactEmail, displayName string) (customer.Customer, error) {
	folded := email.Fold(contactEmail)
	var c customer.Customer
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, email, COALESCE(password_hash, ''), created_at
		 FROM customers WHERE email = $1`, folded).
		Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt)
	switch {
	case err == nil:
		if displayName != "" && displayName != c.Name {
			if _, err := s.q.ExecContext(ctx,
				`UPDATE customers SET name = $2 WHERE id = $1`, c.ID, displayName); err != nil {
				return customer.Customer{}, fmt.Errorf("refresh customer name: %w", err)
			}
			c.Name = displayName
		}
		return c, nil
	case errors.Is(err, sql.ErrNoRows):
		if displayName == "" {
			displayName = email.DeriveDisplayName(folded)
		}
		c = customer.Customer{Name: displayName, Email: folded}
		if err := s.q.QueryRowContext(ctx,
			`INSERT INTO customers (name, email, created_at) VALUES ($1, $2, now())
			 RETURNING id, created_at`, c.Name, c.Email).Scan(&c.ID, &c.CreatedAt); err != nil {
			return customer.Customer{}, fmt.Errorf("create customer: %w", err)
		}
		return c, nil
	default:
		return customer.Customer{}, fmt.Errorf("resolve customer: %w", err)
	}
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order *Order) (int64, error) {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO orders (
			customer_id, total, status, contact_email,
			agency, authorized_officer, position_clearance, contact_number,
			po_number, contract_reference, funding_source, delivery_location,
			payment_method, end_user_certificate, signature_document,
			consent_declared, export_license_status, created_at
		) VALUES (
			$1, $2, $3, $4,
			NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''),
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
			NULLIF($13, ''), $14, NULLIF($15, ''),
			$16, $17, now()
		) RETURNING id, created_at`,
		order.CustomerID, order.Total, order.Status, order.ContactEmail,
		order.Sensitive.Agency, order.Sensitive.AuthorizedOfficer,
		order.Sensitive.PositionClearance, order.Sensitive.ContactNumber,
		order.Sensitive.PONumber, order.Sensitive.ContractReference,
		order.Sensitive.FundingSource, order.Sensitive.DeliveryLocation,
		order.Sensitive.PaymentMethod, order.EndUserCertificate,
		order.SignatureDocument, order.ConsentDeclared, order.ExportLicenseStatus).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return order.ID, nil
}

func (s *PostgresStore) InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for _, item := range items {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if affected == 0 {
		// The FOR UPDATE read should make this unreachable; treat it as a
		// conflict so the transaction rolls back whole.
		return fmt.Errorf("stock for product %d: %w", productID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) OrderByID(ctx context.Context, orderID int64) (Order, []OrderItem, error) {
	var o Order
	err := s.q.QueryRowContext(ctx,
		`SELECT id, customer_id, total, status, contact_email,
			COALESCE(agency, ''), COALESCE(authorized_officer, ''),
			COALESCE(position_clearance, ''), COALESCE(contact_number, ''),
			COALESCE(po_number, ''), COALESCE(contract_reference, ''),
			COALESCE(funding_source, ''), COALESCE(delivery_location, ''),
			COALESCE(payment_method, ''), end_user_certificate,
			COALESCE(signature_document, ''), consent_declared,
			export_license_status, created_at
		 FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.ContactEmail,
			&o.Sensitive.Agency, &o.Sensitive.AuthorizedOfficer,
			&o.Sensitive.PositionClearance, &o.Sensitive.ContactNumber,
			&o.Sensitive.PONumber, &o.Sensitive.ContractReference,
			&o.Sensitive.FundingSource, &o.Sensitive.DeliveryLocation,
			&o.Sensitive.PaymentMethod, &o.EndUserCertificate,
			&o.SignatureDocument, &o.ConsentDeclared,
			&o.ExportLicenseStatus, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, nil, fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
		}
		return Order{}, nil, fmt.Errorf("load order: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT oi.order_id, oi.product_id, p.sku, oi.quantity, oi.unit_price
		 FROM order_items oi JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1 ORDER BY oi.id`, orderID)
	if err != nil {
		return Order{}, nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.SKU, &item.Quantity, &item.UnitPrice); err != nil {
			return Order{}, nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return o, items, rows.Err()
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, customer_id, total, status, contact_email,
			consent_declared, export_license_status, created_at
		 FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.ContactEmail,
			&o.ConsentDeclared, &o.ExportLicenseStatus, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID int64, from, to OrderStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
		orderID, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !exists {
			return fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("order %d was not %s: %w", orderID, from, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) UpdateExportLicense(ctx context.Context, orderID int64, status ExportLicenseStatus) error {
	return s.updateOrderColumn(ctx, orderID, `UPDATE orders SET export_license_status = $2 WHERE id = $1`, string(status))
}

func (s *PostgresStore) updateOrderColumn(ctx context.Context, orderID int64, query, value string) error {
	res, err := s.q.ExecContext(ctx, query, orderID, value)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("order %d: %w", orderID, sentinel.ErrNotFound)
	}
	return nil
}
