package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aerostore/internal/platform/metrics"
	"aerostore/pkg/platform/sentinel"
)

type contextKeyRecord struct{}

// ContextKeyRecord is exported for tests that inject a session directly.
var ContextKeyRecord = contextKeyRecord{}

// FromContext retrieves the session record attached by the middleware.
func FromContext(ctx context.Context) (Record, bool) {
	rec, ok := ctx.Value(ContextKeyRecord).(Record)
	return rec, ok
}

// WithRecord attaches a session record to a context.
func WithRecord(ctx context.Context, rec Record) context.Context {
	return context.WithValue(ctx, ContextKeyRecord, rec)
}

// Manager loads, guards, and saves session records at the request boundary.
// Handlers read the record from context and call Update after mutating it.
type Manager struct {
	store      Store
	guard      Guard
	cookieName string
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// skipPrefixes lists request paths the guard never touches: static
	// assets, health and metrics endpoints.
	skipPrefixes []string
}

func NewManager(store Store, guard Guard, cookieName string, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:        store,
		guard:        guard,
		cookieName:   cookieName,
		logger:       logger,
		metrics:      m,
		skipPrefixes: []string{"/static/", "/healthz", "/metrics"},
	}
}

// Middleware applies the session guard to every inbound request outside the
// allow-list, persists the guarded record, and injects it into the context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range m.skipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ctx := r.Context()
		rec, isNew := m.load(ctx, r)
		if isNew {
			m.setCookie(w, rec.ID)
		}

		rec, verdict := m.guard.Evaluate(rec, time.Now(), r.URL.Path)
		if verdict.Expired {
			m.metrics.ObserveSessionExpired()
			m.logger.InfoContext(ctx, "session expired",
				"session_id", rec.ID,
				"path", r.URL.Path,
			)
		}
		if err := m.store.Save(ctx, rec); err != nil {
			m.logger.ErrorContext(ctx, "session save failed", "error", err)
		}
		if verdict.RedirectTo != "" {
			http.Redirect(w, r, verdict.RedirectTo+"?message=session+expired", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithRecord(ctx, rec)))
	})
}

// Update persists a mutated session record. Cart writes are last-write-wins
// across tabs for the same session.
func (m *Manager) Update(ctx context.Context, rec Record) error {
	return m.store.Save(ctx, rec)
}

func (m *Manager) load(ctx context.Context, r *http.Request) (Record, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return NewRecord(), true
	}
	rec, err := m.store.Find(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			m.logger.ErrorContext(ctx, "session load failed", "error", err)
		}
		rec = NewRecord()
		rec.ID = cookie.Value
	}
	return rec, false
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
