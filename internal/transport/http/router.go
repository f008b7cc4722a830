// Package httptransport assembles the public HTTP surface: shared middleware,
// health probes, metrics and the versioned API.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"mandate/internal/platform/metrics"
	"mandate/pkg/platform/httputil"
	"mandate/pkg/platform/middleware/auth"
	"mandate/pkg/platform/middleware/request"
)

const readinessTimeout = 2 * time.Second

// Module mounts one module's endpoints. Register is called inside the
// authenticated group; RegisterPublic, when present, outside it.
type Module interface {
	Register(r chi.Router)
}

type publicModule interface {
	RegisterPublic(r chi.Router)
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Deps is what the router needs from main.
type Deps struct {
	Logger         *slog.Logger
	Tokens         auth.JWTValidator
	Registry       *prometheus.Registry
	AllowedOrigins []string
	Checks         map[string]Check
	Modules        []Module
	// RateLimit, when set, wraps every /v1 route. Authenticated routes are
	// limited after the token is checked so the budget is per principal.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter wires middleware, probes and every module under /v1.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Logger(d.Logger))
	r.Use(middleware.Recoverer)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", request.HeaderRequestID},
			ExposedHeaders: []string{request.HeaderRequestID},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, d.Logger))
	if d.Registry != nil {
		r.Handle("/metrics", metrics.Handler(d.Registry))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit)
			}
			for _, m := range d.Modules {
				if p, ok := m.(publicModule); ok {
					p.RegisterPublic(r)
				}
			}
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Tokens, d.Logger))
			if d.RateLimit != nil {
				r.Use(d.RateLimit)
			}
			for _, m := range d.Modules {
				m.Register(r)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "route not found",
		})
	})
	return r
}

func readiness(checks map[string]Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed",
					"dependency", name,
					"error", err,
				)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
