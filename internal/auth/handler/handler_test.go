package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"aerostore/internal/auth"
	"aerostore/internal/cart"
	"aerostore/internal/catalog"
	"aerostore/internal/customer"
	jwttoken "aerostore/internal/jwt_token"
	"aerostore/internal/platform/metrics"
	"aerostore/internal/session"
)

var testMetrics = metrics.New()

type AuthHandlerSuite struct {
	suite.Suite
	ctx      context.Context
	router   chi.Router
	sessions *session.InMemoryStore
	saved    *cart.InMemoryPersistedStore
	service  *auth.Service
}

func (s *AuthHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	products := catalog.NewInMemoryStore()
	products.Seed(
		catalog.Product{SKU: "F35", Name: "F-35 Lightning II", Price: 250_000_000, Stock: 10},
		catalog.Product{SKU: "FA18", Name: "F/A-18 Super Hornet", Price: 67_000_000, Stock: 10},
	)
	s.saved = cart.NewInMemoryPersistedStore()
	carts := cart.NewService(products, s.saved)

	adminHash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.service = auth.NewService(customer.NewInMemoryStore(), auth.AdminCredentials{
		Username:     "admin",
		PasswordHash: string(adminHash),
		TokenTTL:     time.Hour,
	}, jwttoken.NewJWTService("test-signing-key", "aerostore", "aerostore-admin"))

	s.sessions = session.NewInMemoryStore()
	manager := session.NewManager(s.sessions, session.Guard{
		InactivityTimeout: 30 * time.Minute,
		AbsoluteMaxAge:    12 * time.Hour,
	}, "aerostore_sid", logger, testMetrics)

	h := New(s.service, carts, manager, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) post(target string, body map[string]any, rec session.Record) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req = req.WithContext(session.WithRecord(req.Context(), rec))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuthHandlerSuite) register(rec session.Record) *httptest.ResponseRecorder {
	return s.post("/auth/register", map[string]any{
		"name":     "Col. J. Mitchell",
		"email":    "j.mitchell@af.mil",
		"password": "wingman-goose-42",
	}, rec)
}

func (s *AuthHandlerSuite) TestRegisterAuthenticatesSession() {
	rec := session.NewRecord()
	rec.Cart = cart.Cart{"F35": 1}

	w := s.register(rec)
	s.Equal(http.StatusCreated, w.Code)

	var resp identityResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.NotZero(resp.CustomerID)
	s.Equal("j.mitchell@af.mil", resp.Email)

	saved, err := s.sessions.Find(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(resp.CustomerID, saved.CustomerID)
	s.Equal(1, saved.Cart.Quantity("F35"))
	s.False(saved.CreatedAt.IsZero(), "authentication starts the lifecycle clocks")
}

func (s *AuthHandlerSuite) TestLoginMergesCartsAdditively() {
	// First session: register and leave a saved cart behind.
	first := session.NewRecord()
	first.Cart = cart.Cart{"F35": 1}
	w := s.register(first)
	s.Equal(http.StatusCreated, w.Code)
	var identity identityResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &identity))

	// Second, anonymous session accumulates its own cart, then logs in.
	second := session.NewRecord()
	second.Cart = cart.Cart{"F35": 2, "FA18": 1}
	w = s.post("/auth/login", map[string]any{
		"email":    "j.mitchell@af.mil",
		"password": "wingman-goose-42",
	}, second)
	s.Equal(http.StatusOK, w.Code)

	saved, err := s.sessions.Find(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(3, saved.Cart.Quantity("F35"), "quantities add across sessions")
	s.Equal(1, saved.Cart.Quantity("FA18"))

	stored, err := s.saved.Load(s.ctx, identity.CustomerID)
	s.Require().NoError(err)
	s.Equal(3, stored.Quantity("F35"), "merged cart is persisted at login")
}

func (s *AuthHandlerSuite) TestLoginBadCredentials() {
	s.register(session.NewRecord())

	w := s.post("/auth/login", map[string]any{
		"email":    "j.mitchell@af.mil",
		"password": "wrong",
	}, session.NewRecord())
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestLogoutKeepsSavedCart() {
	rec := session.NewRecord()
	rec.Cart = cart.Cart{"F35": 1}
	w := s.register(rec)
	s.Equal(http.StatusCreated, w.Code)
	var identity identityResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &identity))

	w = s.post("/auth/logout", nil, mustFind(s, rec.ID))
	s.Equal(http.StatusNoContent, w.Code)

	saved, err := s.sessions.Find(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Zero(saved.CustomerID, "identity wiped")
	s.True(saved.Cart.IsEmpty(), "session cart wiped")

	stored, err := s.saved.Load(s.ctx, identity.CustomerID)
	s.Require().NoError(err)
	s.Equal(1, stored.Quantity("F35"), "saved cart survives logout")
}

func (s *AuthHandlerSuite) TestAdminLogin() {
	rec := session.NewRecord()
	w := s.post("/admin/login", map[string]any{
		"username": "admin",
		"password": "correct horse battery",
	}, rec)
	s.Equal(http.StatusOK, w.Code)

	var resp adminLoginResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.NotEmpty(resp.Token)

	saved, err := s.sessions.Find(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.True(saved.Admin, "session is marked admin for the guard")
}

func (s *AuthHandlerSuite) TestAdminLoginRejected() {
	w := s.post("/admin/login", map[string]any{
		"username": "admin",
		"password": "wrong",
	}, session.NewRecord())
	s.Equal(http.StatusUnauthorized, w.Code)
}

func mustFind(s *AuthHandlerSuite, id string) session.Record {
	rec, err := s.sessions.Find(s.ctx, id)
	s.Require().NoError(err)
	return rec
}
