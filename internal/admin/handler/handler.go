package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aerostore/internal/checkout"
	"aerostore/internal/platform/middleware"
	"aerostore/internal/transport/http/shared"
	dErrors "aerostore/pkg/domain-errors"
)

// Service defines the order review operations the handler depends on.
type Service interface {
	ListOrders(ctx context.Context) ([]checkout.Order, error)
	Order(ctx context.Context, orderID int64) (checkout.Order, []checkout.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID int64, status checkout.OrderStatus) error
	UpdateExportLicense(ctx context.Context, orderID int64, status checkout.ExportLicenseStatus) error
}

// Handler handles the back-office order review endpoints. Every route sits
// behind the admin token check.
type Handler struct {
	logger    *slog.Logger
	orders    Service
	validator middleware.AdminTokenValidator
}

// New creates a new admin Handler.
func New(orders Service, logger *slog.Logger, validator middleware.AdminTokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		orders:    orders,
		validator: validator,
	}
}

// Register registers the admin order routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	admin := chi.NewRouter()
	admin.Use(middleware.RequireAdmin(h.validator, h.logger))
	admin.Get("/", h.handleListOrders)
	admin.Get("/{id}", h.handleOrder)
	admin.Put("/{id}/status", h.handleUpdateStatus)
	admin.Put("/{id}/export-license", h.handleUpdateExportLicense)
	r.Mount("/admin/orders", admin)
}

type orderSummary struct {
	ID                  int64     `json:"id"`
	CustomerID          int64     `json:"customer_id"`
	Total               float64   `json:"total"`
	Status              string    `json:"status"`
	ContactEmail        string    `json:"contact_email"`
	ExportLicenseStatus string    `json:"export_license_status"`
	CreatedAt           time.Time `json:"created_at"`
}

type orderItemDetail struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type orderDetail struct {
	orderSummary
	Agency             string            `json:"agency,omitempty"`
	AuthorizedOfficer  string            `json:"authorized_officer,omitempty"`
	PositionClearance  string            `json:"position_clearance,omitempty"`
	ContactNumber      string            `json:"contact_number,omitempty"`
	PONumber           string            `json:"po_number,omitempty"`
	ContractReference  string            `json:"contract_reference,omitempty"`
	FundingSource      string            `json:"funding_source,omitempty"`
	DeliveryLocation   string            `json:"delivery_location,omitempty"`
	PaymentMethod      string            `json:"payment_method,omitempty"`
	EndUserCertificate string            `json:"end_user_certificate"`
	SignatureDocument  string            `json:"signature_document,omitempty"`
	ConsentDeclared    bool              `json:"consent_declared"`
	Items              []orderItemDetail `json:"items"`
}

func toSummary(o checkout.Order) orderSummary {
	return orderSummary{
		ID:                  o.ID,
		CustomerID:          o.CustomerID,
		Total:               o.Total,
		Status:              string(o.Status),
		ContactEmail:        o.ContactEmail,
		ExportLicenseStatus: string(o.ExportLicenseStatus),
		CreatedAt:           o.CreatedAt,
	}
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not list orders",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not list orders"))
		return
	}
	resp := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toSummary(o))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, items, err := h.orders.Order(ctx, orderID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "could not load order",
			"request_id", middleware.GetRequestID(ctx),
			"order_id", orderID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not load order"))
		return
	}

	resp := orderDetail{
		orderSummary:       toSummary(order),
		Agency:             order.Sensitive.Agency,
		AuthorizedOfficer:  order.Sensitive.AuthorizedOfficer,
		PositionClearance:  order.Sensitive.PositionClearance,
		ContactNumber:      order.Sensitive.ContactNumber,
		PONumber:           order.Sensitive.PONumber,
		ContractReference:  order.Sensitive.ContractReference,
		FundingSource:      order.Sensitive.FundingSource,
		DeliveryLocation:   order.Sensitive.DeliveryLocation,
		PaymentMethod:      order.Sensitive.PaymentMethod,
		EndUserCertificate: order.EndUserCertificate,
		SignatureDocument:  order.SignatureDocument,
		ConsentDeclared:    order.ConsentDeclared,
		Items:              make([]orderItemDetail, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemDetail{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "order status", func(ctx context.Context, orderID int64, status string) error {
		return h.orders.UpdateStatus(ctx, orderID, checkout.OrderStatus(status))
	})
}

func (h *Handler) handleUpdateExportLicense(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "export license", func(ctx context.Context, orderID int64, status string) error {
		return h.orders.UpdateExportLicense(ctx, orderID, checkout.ExportLicenseStatus(status))
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, what string, apply func(context.Context, int64, string) error) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var body updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := apply(ctx, orderID, body.Status); err != nil {
		switch {
		case dErrors.Is(err, dErrors.CodeValidation),
			dErrors.Is(err, dErrors.CodeNotFound),
			dErrors.Is(err, dErrors.CodeConflict):
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "could not update "+what,
				"request_id", requestID,
				"order_id", orderID,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not update "+what))
		}
		return
	}

	h.logger.InfoContext(ctx, what+" updated",
		"request_id", requestID,
		"order_id", orderID,
		"status", body.Status,
		"admin_id", middleware.GetAdminID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid order id"))
		return 0, false
	}
	return id, true
}
