package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "roster/pkg/platform/middleware/request"
)

type contextKeyActor struct{}

// Actor returns the operator identifier attached by RequireAdminToken, or "".
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(contextKeyActor{}).(string); ok {
		return actor
	}
	return ""
}

// RequireAdminToken guards operator-only routes such as the manual pass trigger.
// An empty expectedToken disables the check.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			if actor := r.Header.Get("X-Admin-Actor"); actor != "" {
				ctx = context.WithValue(ctx, contextKeyActor{}, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
