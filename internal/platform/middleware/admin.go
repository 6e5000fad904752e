package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// AdminTokenValidator validates admin bearer tokens issued at admin login.
type AdminTokenValidator interface {
	ValidateAdminToken(tokenString string) (*AdminClaims, error)
}

// AdminClaims carries the identity asserted by a validated admin token.
type AdminClaims struct {
	AdminID string
}

type contextKeyAdminID struct{}

var ContextKeyAdminID = contextKeyAdminID{}

// GetAdminID retrieves the authenticated admin ID from the context.
func GetAdminID(ctx context.Context) string {
	id, ok := ctx.Value(ContextKeyAdminID).(string)
	if !ok {
		return ""
	}
	return id
}

// RequireAdmin gates administrative routes behind a valid bearer token.
func RequireAdmin(validator AdminTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}
			claims, err := validator.ValidateAdminToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized admin access",
					"request_id", GetRequestID(r.Context()),
					"error", err,
				)
				writeUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyAdminID, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
