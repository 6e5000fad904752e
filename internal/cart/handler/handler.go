package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aerostore/internal/cart"
	"aerostore/internal/catalog"
	"aerostore/internal/platform/metrics"
	"aerostore/internal/platform/middleware"
	"aerostore/internal/session"
	"aerostore/internal/transport/http/shared"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/sentinel"
)

// Service defines the cart operations the handler depends on.
type Service interface {
	AddQuantity(ctx context.Context, c cart.Cart, sku string, delta int) (bool, error)
	SetQuantity(ctx context.Context, c cart.Cart, sku string, qty int) (bool, error)
	Persist(ctx context.Context, customerID int64, c cart.Cart) error
}

// Catalog is the read surface needed to render cart lines.
type Catalog interface {
	BySKU(ctx context.Context, sku string) (catalog.Product, error)
}

// Handler handles cart endpoints. Every mutation writes the session record
// back, and additionally overwrites the saved cart when the session is
// authenticated.
type Handler struct {
	logger   *slog.Logger
	carts    Service
	catalog  Catalog
	sessions *session.Manager
	metrics  *metrics.Metrics
}

// New creates a new cart Handler.
func New(carts Service, cat Catalog, sessions *session.Manager, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		carts:    carts,
		catalog:  cat,
		sessions: sessions,
		metrics:  m,
	}
}

// Register registers the cart routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cart", h.handleGetCart)
	r.Post("/cart/items", h.handleAddItem)
	r.Put("/cart/items/{sku}", h.handleSetItem)
	r.Delete("/cart/items/{sku}", h.handleRemoveItem)
}

type cartLine struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type cartResponse struct {
	Items    []cartLine `json:"items"`
	Total    float64    `json:"total"`
	Adjusted bool       `json:"quantity_adjusted,omitempty"`
}

type mutateItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, ok := session.FromContext(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}
	resp, err := h.render(ctx, rec.Cart, false)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not render cart",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not load cart"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// handleAddItem adds the posted quantity to the session cart, clamping to
// live stock. A clamp is reported to the client, never treated as an error.
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var body mutateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	h.mutate(w, r, func(ctx context.Context, c cart.Cart) (bool, error) {
		return h.carts.AddQuantity(ctx, c, body.SKU, body.Quantity)
	})
}

func (h *Handler) handleSetItem(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	var body mutateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.mutate(w, r, func(ctx context.Context, c cart.Cart) (bool, error) {
		return h.carts.SetQuantity(ctx, c, sku, body.Quantity)
	})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	h.mutate(w, r, func(ctx context.Context, c cart.Cart) (bool, error) {
		return h.carts.SetQuantity(ctx, c, sku, 0)
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, cart.Cart) (bool, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	rec, ok := session.FromContext(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}

	adjusted, err := op(ctx, rec.Cart)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "cart mutation failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not update cart"))
		return
	}
	if adjusted {
		h.metrics.ObserveCartAdjusted()
	}

	if err := h.sessions.Update(ctx, rec); err != nil {
		h.logger.ErrorContext(ctx, "could not save session cart",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not update cart"))
		return
	}
	// Authenticated sessions mirror every cart write into the saved cart so
	// the state survives logout and expiry.
	if rec.CustomerID != 0 {
		if err := h.carts.Persist(ctx, rec.CustomerID, rec.Cart); err != nil {
			h.logger.ErrorContext(ctx, "could not persist saved cart",
				"request_id", requestID,
				"customer_id", rec.CustomerID,
				"error", err.Error(),
			)
		}
	}

	resp, err := h.render(ctx, rec.Cart, adjusted)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not render cart",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not load cart"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// render joins cart quantities with live catalog rows. A product deleted
// since it was added renders as a removed line rather than an error.
func (h *Handler) render(ctx context.Context, c cart.Cart, adjusted bool) (cartResponse, error) {
	resp := cartResponse{Items: make([]cartLine, 0, len(c)), Adjusted: adjusted}
	for _, sku := range c.SKUs() {
		product, err := h.catalog.BySKU(ctx, sku)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return cartResponse{}, err
		}
		qty := c.Quantity(sku)
		line := cartLine{
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  qty,
			UnitPrice: product.Price,
			LineTotal: product.Price * float64(qty),
		}
		resp.Items = append(resp.Items, line)
		resp.Total += line.LineTotal
	}
	return resp, nil
}
