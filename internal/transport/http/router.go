package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	request "roster/pkg/platform/middleware/request"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(r chi.Router)

func (f RegistrarFunc) Register(r chi.Router) { f(r) }

// RouterConfig carries the cross-cutting settings of the middleware stack.
type RouterConfig struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	Metrics        *request.Metrics
}

// NewRouter wires the middleware stack and mounts every registrar.
func NewRouter(cfg RouterConfig, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.LatencyMiddleware(cfg.Metrics, routePattern))

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
