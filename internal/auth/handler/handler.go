package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aerostore/internal/cart"
	"aerostore/internal/customer"
	"aerostore/internal/platform/middleware"
	"aerostore/internal/session"
	"aerostore/internal/transport/http/shared"
	dErrors "aerostore/pkg/domain-errors"
)

// Service defines the authentication operations the handler depends on.
type Service interface {
	Register(ctx context.Context, name, email, password string) (customer.Customer, error)
	Login(ctx context.Context, email, password string) (customer.Customer, error)
	AdminLogin(username, password string) (string, error)
}

// CartMerger combines the anonymous session cart with the saved cart at
// authentication time.
type CartMerger interface {
	MergeOnLogin(ctx context.Context, sessionCart cart.Cart, customerID int64) (cart.Cart, error)
}

// Handler handles register, login, logout, and the admin login.
type Handler struct {
	logger   *slog.Logger
	auth     Service
	carts    CartMerger
	sessions *session.Manager
}

// New creates a new auth Handler.
func New(auth Service, carts CartMerger, sessions *session.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		auth:     auth,
		carts:    carts,
		sessions: sessions,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/admin/login", h.handleAdminLogin)
}

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.auth.Register(ctx, body.Name, body.Email, body.Password)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) || dErrors.Is(err, dErrors.CodeConflict) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not create account"))
		return
	}

	h.establish(w, r, c, http.StatusCreated)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.auth.Login(ctx, body.Email, body.Password)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnauthorized) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "login failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not log in"))
		return
	}

	h.establish(w, r, c, http.StatusOK)
}

// establish binds an authenticated identity to the session: the anonymous
// cart is merged additively into the saved cart, the merged cart becomes the
// session cart, and the lifecycle clocks start.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request, c customer.Customer, status int) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	rec, ok := session.FromContext(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}

	merged, err := h.carts.MergeOnLogin(ctx, rec.Cart, c.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "cart merge failed",
			"request_id", requestID,
			"customer_id", c.ID,
			"error", err.Error(),
		)
		// The identity still attaches; the session cart survives unmerged.
		merged = rec.Cart
	}

	now := time.Now()
	rec.CustomerID = c.ID
	rec.CustomerEmail = c.Email
	rec.CustomerName = c.Name
	rec.Cart = merged
	rec.CreatedAt = now
	rec.LastActive = now

	if err := h.sessions.Update(ctx, rec); err != nil {
		h.logger.ErrorContext(ctx, "could not save session after login",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not log in"))
		return
	}

	h.logger.InfoContext(ctx, "customer authenticated",
		"request_id", requestID,
		"customer_id", c.ID,
	)
	shared.WriteJSON(w, status, identityResponse{
		CustomerID: c.ID,
		Name:       c.Name,
		Email:      c.Email,
	})
}

// handleLogout wipes identity and cart from the session. The saved cart keeps
// the merged state for the next login.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, ok := session.FromContext(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}
	if err := h.sessions.Update(ctx, rec.Cleared()); err != nil {
		h.logger.ErrorContext(ctx, "could not clear session on logout",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not log out"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var body adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, err := h.auth.AdminLogin(body.Username, body.Password)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnauthorized) {
			h.logger.WarnContext(ctx, "admin login rejected", "request_id", requestID)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "admin login failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not log in"))
		return
	}

	// Marking the session admin subjects it to the back-office inactivity
	// redirect policy.
	if rec, ok := session.FromContext(ctx); ok {
		rec.Admin = true
		now := time.Now()
		rec.CreatedAt = now
		rec.LastActive = now
		if err := h.sessions.Update(ctx, rec); err != nil {
			h.logger.ErrorContext(ctx, "could not mark session admin",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
	}

	shared.WriteJSON(w, http.StatusOK, adminLoginResponse{Token: token})
}
