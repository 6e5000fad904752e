package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aerostore/internal/catalog"
	"aerostore/internal/platform/middleware"
	"aerostore/internal/transport/http/shared"
	dErrors "aerostore/pkg/domain-errors"
)

// Service defines the catalog operations the handler depends on.
type Service interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Featured(ctx context.Context) ([]catalog.Product, error)
	BySKU(ctx context.Context, sku string) (catalog.Product, error)
	AdminEdit(ctx context.Context, sku, name, description, rawPrice, image string) error
}

// Handler handles catalog endpoints: the public storefront reads and the
// admin product editor.
type Handler struct {
	logger    *slog.Logger
	catalog   Service
	validator middleware.AdminTokenValidator
}

// New creates a new catalog Handler.
func New(catalog Service, logger *slog.Logger, validator middleware.AdminTokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		catalog:   catalog,
		validator: validator,
	}
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Get("/products/featured", h.handleFeatured)
	r.Get("/products/{sku}", h.handleBySKU)

	// Mounted under its own /admin segment so the order-review handler can
	// own /admin/orders on the same root router.
	admin := chi.NewRouter()
	admin.Use(middleware.RequireAdmin(h.validator, h.logger))
	admin.Put("/{sku}", h.handleAdminEdit)
	r.Mount("/admin/products", admin)
}

type productResponse struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image,omitempty"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Image:       p.Image,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, h.catalog.List)
}

func (h *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, h.catalog.Featured)
}

func (h *Handler) writeProducts(w http.ResponseWriter, r *http.Request, read func(context.Context) ([]catalog.Product, error)) {
	ctx := r.Context()
	products, err := read(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not list products",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not load catalog"))
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBySKU(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.catalog.BySKU(ctx, chi.URLParam(r, "sku"))
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) || dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "could not load product",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not load product"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProductResponse(product))
}

type adminEditRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
}

// handleAdminEdit applies a partial product edit. Price arrives as a string
// because the admin form allows separators; an unparseable price leaves the
// stored price alone.
func (h *Handler) handleAdminEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	sku := chi.URLParam(r, "sku")

	var body adminEditRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	err := h.catalog.AdminEdit(ctx, sku, body.Name, body.Description, body.Price, body.Image)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) || dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "could not update product",
			"request_id", requestID,
			"sku", sku,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not update product"))
		return
	}

	h.logger.InfoContext(ctx, "product updated",
		"request_id", requestID,
		"sku", sku,
		"admin_id", middleware.GetAdminID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
