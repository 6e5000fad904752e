package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"aerostore/internal/cart"
	"aerostore/internal/notify"
	"aerostore/internal/platform/metrics"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/fieldcipher"
	"aerostore/pkg/platform/sentinel"
)

// Engine converts a cart into a committed order. All stock validation and
// every write happen inside a single RunInTx scope; the pre-checkout stock
// snapshot shown to the user is never trusted. Notification runs after
// commit, outside the transaction, and can only be logged about.
type Engine struct {
	tx             StoreTx
	cipher         *fieldcipher.Cipher
	carts          *cart.Service
	dispatcher     notify.Dispatcher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	allowedDomains []string
	notifyTimeout  time.Duration
}

func NewEngine(
	tx StoreTx,
	cipher *fieldcipher.Cipher,
	carts *cart.Service,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
	m *metrics.Metrics,
	allowedDomains []string,
	notifyTimeout time.Duration,
) *Engine {
	if notifyTimeout <= 0 {
		notifyTimeout = 2 * time.Second
	}
	return &Engine{
		tx:             tx,
		cipher:         cipher,
		carts:          carts,
		dispatcher:     dispatcher,
		logger:         logger,
		metrics:        m,
		allowedDomains: allowedDomains,
		notifyTimeout:  notifyTimeout,
	}
}

// PlaceOrder runs the checkout pipeline for a cart snapshot. On success the
// persisted customer cart is overwritten empty; the caller clears the
// session copy. On any failure the transaction rolls back whole and the cart
// is left untouched so the user can adjust quantities and resubmit.
func (e *Engine) PlaceOrder(ctx context.Context, snapshot cart.Cart, req Request) (*PlacedOrder, error) {
	// Checkout refuses to run without an encryption key rather than store
	// sensitive fields in the clear.
	if e.cipher == nil {
		return nil, e.fail(dErrors.New(dErrors.CodeConfiguration, "checkout is unavailable: field encryption not configured"))
	}
	if err := req.Validate(e.allowedDomains); err != nil {
		return nil, e.fail(err)
	}
	// A resubmitted checkout after success operates on an already emptied
	// cart; short-circuiting here is what makes the back-button safe.
	if snapshot.IsEmpty() {
		return &PlacedOrder{Resubmitted: true}, nil
	}

	tracer := otel.Tracer("aerostore/checkout")
	ctx, span := tracer.Start(ctx, "PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout.contact_email", req.ContactEmail),
		attribute.Int("checkout.distinct_items", len(snapshot)),
	)

	result := &PlacedOrder{}
	err := e.tx.RunInTx(ctx, func(store Store) error {
		return e.placeOrderTx(ctx, store, snapshot, req, result)
	})
	if err != nil {
		span.RecordError(err)
		return nil, e.fail(err)
	}

	span.SetAttributes(attribute.Int64("checkout.order_id", result.OrderID))
	e.metrics.ObserveOrderPlaced()
	e.logger.InfoContext(ctx, "order placed",
		"order_id", result.OrderID,
		"customer_id", result.CustomerID,
		"total", result.Total,
	)

	// The committed order owns the units now; the saved cart must not offer
	// them again. A failure here is recoverable noise, not a checkout error.
	if err := e.carts.Clear(ctx, result.CustomerID); err != nil {
		e.logger.ErrorContext(ctx, "could not clear saved cart after checkout",
			"order_id", result.OrderID,
			"customer_id", result.CustomerID,
			"error", err,
		)
	}

	e.dispatch(ctx, req, result)
	return result, nil
}

// placeOrderTx is the transactional body: validate stock, resolve the
// customer, write order rows, decrement stock. Returning an error rolls the
// whole transaction back with no partial effect.
func (e *Engine) placeOrderTx(ctx context.Context, store Store, snapshot cart.Cart, req Request, result *PlacedOrder) error {
	var (
		items []OrderItem
		total float64
	)
	// Live re-read under row locks closes the race between "cart viewed"
	// and "order committed".
	for _, sku := range snapshot.SKUs() {
		qty := snapshot[sku]
		product, err := store.ProductForUpdate(ctx, sku)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeValidation, "unknown product %s", sku)
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "could not verify stock")
		}
		if qty > product.Stock {
			return dErrors.Newf(dErrors.CodeInsufficientStock,
				"insufficient stock for %s: requested %d, available %d", product.SKU, qty, product.Stock)
		}
		items = append(items, OrderItem{
			ProductID: product.ID,
			SKU:       product.SKU,
			Quantity:  qty,
			UnitPrice: product.Price,
		})
		total += product.Price * float64(qty)
	}

	resolved, err := store.ResolveCustomer(ctx, req.ContactEmail, req.ContactName)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not resolve customer")
	}

	sealed, err := e.sealFields(req.Sensitive)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encrypt checkout fields")
	}

	order := &Order{
		CustomerID:          resolved.ID,
		Total:               total,
		Status:              StatusPlaced,
		ContactEmail:        req.ContactEmail,
		Sensitive:           sealed,
		EndUserCertificate:  req.EndUserCertificate,
		SignatureDocument:   req.SignatureDocument,
		ConsentDeclared:     req.ConsentDeclared,
		ExportLicenseStatus: ExportPending,
	}
	orderID, err := store.InsertOrder(ctx, order)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not record order")
	}
	if err := store.InsertOrderItems(ctx, orderID, items); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "could not record order items")
	}
	for _, item := range items {
		if err := store.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			// A conflict here means another transaction took the stock
			// between our check and the write; roll back whole.
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeInsufficientStock,
					"insufficient stock for %s: taken by a concurrent order", item.SKU)
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "could not adjust stock")
		}
	}

	result.OrderID = orderID
	result.Total = total
	result.CustomerID = resolved.ID
	result.CustomerName = resolved.Name
	result.Items = items
	return nil
}

// sealFields encrypts each sensitive descriptor independently; empty fields
// stay empty so nullable columns stay null.
func (e *Engine) sealFields(f SensitiveFields) (SensitiveFields, error) {
	fields := []struct {
		src string
		dst *string
	}{
		{f.Agency, &f.Agency},
		{f.AuthorizedOfficer, &f.AuthorizedOfficer},
		{f.PositionClearance, &f.PositionClearance},
		{f.ContactNumber, &f.ContactNumber},
		{f.PONumber, &f.PONumber},
		{f.ContractReference, &f.ContractReference},
		{f.FundingSource, &f.FundingSource},
		{f.DeliveryLocation, &f.DeliveryLocation},
		{f.PaymentMethod, &f.PaymentMethod},
	}
	for _, field := range fields {
		token, err := e.cipher.Encrypt(field.src)
		if err != nil {
			return SensitiveFields{}, err
		}
		*field.dst = token
	}
	return f, nil
}

// dispatch sends the confirmation outside the transaction boundary with a
// bounded timeout. The context is detached from the request so a client
// disconnect cannot suppress the confirmation of a committed order.
func (e *Engine) dispatch(ctx context.Context, req Request, result *PlacedOrder) {
	if e.dispatcher == nil {
		return
	}
	lines := make([]notify.Line, 0, len(result.Items))
	for _, item := range result.Items {
		lines = append(lines, notify.Line{SKU: item.SKU, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()
	err := e.dispatcher.Notify(notifyCtx, notify.Confirmation{
		OrderID:        result.OrderID,
		RecipientEmail: req.ContactEmail,
		RecipientName:  result.CustomerName,
		Items:          lines,
		Total:          result.Total,
		PlacedAt:       time.Now().UTC(),
	})
	if err != nil {
		// The order is committed; confirmation failure is log-only.
		e.logger.ErrorContext(ctx, "order confirmation dispatch failed",
			"order_id", result.OrderID,
			"error", err,
		)
	}
}

func (e *Engine) fail(err error) error {
	e.metrics.ObserveCheckoutFailure(string(dErrors.CodeOf(err)))
	return err
}
