package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aerostore/internal/cart"
	"aerostore/internal/checkout"
	"aerostore/internal/platform/middleware"
	"aerostore/internal/session"
	"aerostore/internal/transport/http/shared"
	dErrors "aerostore/pkg/domain-errors"
)

// Service defines the checkout operation the handler depends on.
type Service interface {
	PlaceOrder(ctx context.Context, snapshot cart.Cart, req checkout.Request) (*checkout.PlacedOrder, error)
}

// Handler handles the checkout endpoint.
type Handler struct {
	logger   *slog.Logger
	engine   Service
	sessions *session.Manager
}

// New creates a new checkout Handler.
func New(engine Service, sessions *session.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		engine:   engine,
		sessions: sessions,
	}
}

// Register registers the checkout routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkout", h.handlePlaceOrder)
}

type placeOrderRequest struct {
	ContactEmail       string `json:"contact_email"`
	ContactName        string `json:"contact_name"`
	ConsentDeclared    bool   `json:"consent_declared"`
	EndUserCertificate string `json:"end_user_certificate"`
	SignatureDocument  string `json:"signature_document"`
	Agency             string `json:"agency"`
	AuthorizedOfficer  string `json:"authorized_officer"`
	PositionClearance  string `json:"position_clearance"`
	ContactNumber      string `json:"contact_number"`
	PONumber           string `json:"po_number"`
	ContractReference  string `json:"contract_reference"`
	FundingSource      string `json:"funding_source"`
	DeliveryLocation   string `json:"delivery_location"`
	PaymentMethod      string `json:"payment_method"`
}

type orderLine struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type placeOrderResponse struct {
	OrderID     int64       `json:"order_id,omitempty"`
	Total       float64     `json:"total,omitempty"`
	Items       []orderLine `json:"items,omitempty"`
	Resubmitted bool        `json:"resubmitted,omitempty"`
}

// handlePlaceOrder turns the session cart plus the posted descriptor fields
// into an order. The session cart is cleared only after the engine reports
// success; on failure it is left intact for adjustment.
func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	rec, ok := session.FromContext(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "session missing from context despite session middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}

	var body placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid checkout request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// An authenticated session supplies identity defaults the form may omit.
	if body.ContactEmail == "" {
		body.ContactEmail = rec.CustomerEmail
	}
	if body.ContactName == "" {
		body.ContactName = rec.CustomerName
	}

	placed, err := h.engine.PlaceOrder(ctx, rec.Cart, checkout.Request{
		ContactEmail:       body.ContactEmail,
		ContactName:        body.ContactName,
		ConsentDeclared:    body.ConsentDeclared,
		EndUserCertificate: body.EndUserCertificate,
		SignatureDocument:  body.SignatureDocument,
		Sensitive: checkout.SensitiveFields{
			Agency:            body.Agency,
			AuthorizedOfficer: body.AuthorizedOfficer,
			PositionClearance: body.PositionClearance,
			ContactNumber:     body.ContactNumber,
			PONumber:          body.PONumber,
			ContractReference: body.ContractReference,
			FundingSource:     body.FundingSource,
			DeliveryLocation:  body.DeliveryLocation,
			PaymentMethod:     body.PaymentMethod,
		},
	})
	if err != nil {
		switch {
		case dErrors.Is(err, dErrors.CodeValidation), dErrors.Is(err, dErrors.CodeInsufficientStock):
			h.logger.WarnContext(ctx, "checkout rejected",
				"request_id", requestID,
				"error", err.Error(),
			)
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "checkout failed",
				"request_id", requestID,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not place order"))
		}
		return
	}

	if placed.Resubmitted {
		shared.WriteJSON(w, http.StatusOK, placeOrderResponse{Resubmitted: true})
		return
	}

	rec.Cart = cart.New()
	if err := h.sessions.Update(ctx, rec); err != nil {
		// The order is committed; a stale session cart re-empties on the
		// next submit via the resubmission short-circuit.
		h.logger.ErrorContext(ctx, "could not clear session cart after checkout",
			"request_id", requestID,
			"order_id", placed.OrderID,
			"error", err.Error(),
		)
	}

	resp := placeOrderResponse{
		OrderID: placed.OrderID,
		Total:   placed.Total,
		Items:   make([]orderLine, 0, len(placed.Items)),
	}
	for _, item := range placed.Items {
		resp.Items = append(resp.Items, orderLine{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	shared.WriteJSON(w, http.StatusCreated, resp)
}
