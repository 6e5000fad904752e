// Package notify delivers order confirmations. Dispatch is best-effort by
// contract: the order has already committed when Notify runs, so failures
// here are logged by the caller and never surface as checkout failures.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Line is one confirmed order line.
type Line struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Confirmation is the order summary handed to the dispatcher.
type Confirmation struct {
	OrderID        int64     `json:"order_id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`
	Items          []Line    `json:"items"`
	Total          float64   `json:"total"`
	PlacedAt       time.Time `json:"placed_at"`
}

// Dispatcher sends an order confirmation. The core only requires this
// contract, not a transport.
type Dispatcher interface {
	Notify(ctx context.Context, confirmation Confirmation) error
}

// LogDispatcher records confirmations in the log. Used when no broker is
// configured, keeping the wiring identical in development.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(ctx context.Context, c Confirmation) error {
	d.logger.InfoContext(ctx, "order confirmation",
		"order_id", c.OrderID,
		"recipient", c.RecipientEmail,
		"items", len(c.Items),
		"total", c.Total,
	)
	return nil
}
