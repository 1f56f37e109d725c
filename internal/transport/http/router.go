// Package httptransport assembles the HTTP surface: middleware chain, domain
// handlers, health, and metrics. It holds no business logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	evidencehandler "custodia/internal/evidence/handler"
	ledgerhandler "custodia/internal/ledger/handler"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
)

const requestTimeout = 30 * time.Second

// HealthChecker reports whether one backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts. Health checkers may be nil when
// the corresponding backend is not configured.
type Deps struct {
	Evidence  *evidencehandler.Handler
	Ledger    *ledgerhandler.Handler
	Validator middleware.JWTValidator
	Logger    *slog.Logger
	Health    map[string]HealthChecker
}

// NewRouter wires the public endpoints. Every /evidence route requires a valid
// bearer token; health and metrics do not.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleHealth(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		d.Evidence.Register(r)
		d.Ledger.Register(r)
	})

	return r
}

// handleHealth pings each configured backend and reports per-dependency
// status. Any failure makes the endpoint 503 so load balancers stop routing.
func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		shared.WriteJSON(w, status, map[string]any{
			"status":       statusWord(status),
			"dependencies": deps,
		})
	}
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
