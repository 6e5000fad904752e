// Package admin implements the back-office order review: listing orders,
// reading one order with its sensitive fields decrypted, and moving orders
// through the fulfilment and export-license state machines.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"aerostore/internal/checkout"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/fieldcipher"
	"aerostore/pkg/platform/sentinel"
)

// decryptFailure is shown in place of a field whose cipher token cannot be
// opened, so one corrupt column never hides the rest of the order.
const decryptFailure = "[decryption error]"

// Service implements the order review operations.
type Service struct {
	tx     checkout.StoreTx
	store  checkout.Store
	cipher *fieldcipher.Cipher
	logger *slog.Logger
}

func NewService(tx checkout.StoreTx, store checkout.Store, cipher *fieldcipher.Cipher, logger *slog.Logger) *Service {
	return &Service{
		tx:     tx,
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

// ListOrders returns order summaries, newest first. Sensitive fields are not
// decrypted on the list view.
func (s *Service) ListOrders(ctx context.Context) ([]checkout.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "could not list orders")
	}
	return orders, nil
}

// Order returns one order with its sensitive descriptor fields decrypted. A
// field that fails to decrypt renders a placeholder rather than failing the
// whole read.
func (s *Service) Order(ctx context.Context, orderID int64) (checkout.Order, []checkout.OrderItem, error) {
	order, items, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return checkout.Order{}, nil, dErrors.Newf(dErrors.CodeNotFound, "unknown order %d", orderID)
		}
		return checkout.Order{}, nil, dErrors.Wrap(err, dErrors.CodePersistence, "could not load order")
	}

	order.Sensitive = checkout.SensitiveFields{
		Agency:            s.open(ctx, orderID, "agency", order.Sensitive.Agency),
		AuthorizedOfficer: s.open(ctx, orderID, "authorized_officer", order.Sensitive.AuthorizedOfficer),
		PositionClearance: s.open(ctx, orderID, "position_clearance", order.Sensitive.PositionClearance),
		ContactNumber:     s.open(ctx, orderID, "contact_number", order.Sensitive.ContactNumber),
		PONumber:          s.open(ctx, orderID, "po_number", order.Sensitive.PONumber),
		ContractReference: s.open(ctx, orderID, "contract_reference", order.Sensitive.ContractReference),
		FundingSource:     s.open(ctx, orderID, "funding_source", order.Sensitive.FundingSource),
		DeliveryLocation:  s.open(ctx, orderID, "delivery_location", order.Sensitive.DeliveryLocation),
		PaymentMethod:     s.open(ctx, orderID, "payment_method", order.Sensitive.PaymentMethod),
	}
	return order, items, nil
}

func (s *Service) open(ctx context.Context, orderID int64, field, value string) string {
	if value == "" || !fieldcipher.IsToken(value) {
		return value
	}
	if s.cipher == nil {
		return decryptFailure
	}
	plain, err := s.cipher.Decrypt(value)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not decrypt order field",
			"order_id", orderID,
			"field", field,
			"error", err,
		)
		return decryptFailure
	}
	return plain
}

// UpdateStatus moves an order through the fulfilment state machine. The
// write is conditional on the status observed by the in-transaction read, so
// a concurrent review that changed the order in the meantime surfaces as a
// conflict instead of a lost update.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status checkout.OrderStatus) error {
	if !checkout.ValidStatus(status) {
		return dErrors.Newf(dErrors.CodeValidation, "invalid order status %q", status)
	}
	return s.tx.RunInTx(ctx, func(store checkout.Store) error {
		order, _, err := store.OrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "unknown order %d", orderID)
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "could not load order")
		}
		if order.Status == status {
			return nil
		}
		if !checkout.CanTransition(order.Status, status) {
			return dErrors.Newf(dErrors.CodeConflict, "order cannot move from %s to %s", order.Status, status)
		}
		if err := store.UpdateOrderStatus(ctx, orderID, order.Status, status); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "order %d changed during review", orderID)
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "could not update order status")
		}
		return nil
	})
}

// UpdateExportLicense records the export license verdict on an order.
func (s *Service) UpdateExportLicense(ctx context.Context, orderID int64, status checkout.ExportLicenseStatus) error {
	if !checkout.ValidExportLicenseStatus(status) {
		return dErrors.Newf(dErrors.CodeValidation, "invalid export license status %q", status)
	}
	if err := s.store.UpdateExportLicense(ctx, orderID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "unknown order %d", orderID)
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not update export license")
	}
	return nil
}
