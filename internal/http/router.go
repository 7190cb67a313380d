// Package httpapi assembles the HTTP surface: middleware chain, module
// handlers, health and metrics endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "attesta/internal/platform/metrics"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/platform/middleware/auth"
	"attesta/pkg/platform/middleware/metadata"
	"attesta/pkg/platform/middleware/ratelimit"
	"attesta/pkg/platform/middleware/request"
	"attesta/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by module handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports backing-service health for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig collects everything the router needs.
type RouterConfig struct {
	Logger         *slog.Logger
	TokenValidator auth.TokenValidator
	HTTPMetrics    *platformmetrics.HTTPMetrics
	RateLimiter    *ratelimit.Limiter

	// Public handlers are mounted without authentication; Protected handlers
	// sit behind the bearer-token middleware when a validator is configured.
	Public    []Registrar
	Protected []Registrar

	// HealthCheckers are probed by /healthz; any failure degrades the report.
	HealthCheckers map[string]HealthChecker
}

// NewRouter wires the middleware chain and all module routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}
	if cfg.RateLimiter != nil {
		r.Use(ratelimit.Middleware(cfg.RateLimiter, cfg.Logger))
	}

	r.Get("/healthz", handleHealth(cfg.HealthCheckers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range cfg.Public {
		h.Register(r)
	}

	r.Group(func(r chi.Router) {
		if cfg.TokenValidator != nil {
			r.Use(auth.RequireAuth(cfg.TokenValidator, cfg.Logger))
		}
		for _, h := range cfg.Protected {
			h.Register(r)
		}
	})

	return r
}

func handleHealth(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		report := map[string]string{"status": "ok"}

		for name, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
			} else {
				report[name] = "ok"
			}
		}

		httputil.WriteJSON(w, status, report)
	}
}
