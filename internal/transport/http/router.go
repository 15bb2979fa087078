// Package httptransport wires the HTTP surface: the chi router, the auth
// endpoint handlers, and the health endpoint. Handlers delegate to the auth
// service; transport concerns (validation, cookies, envelopes) stay here.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"folio/internal/csrf"
	platformmw "folio/internal/platform/middleware"
	"folio/pkg/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterDeps carries everything the router needs. RequireAuth and CSRF are
// pre-built middleware closures so the router stays ignorant of their wiring.
type RouterDeps struct {
	Auth        *AuthHandler
	RequireAuth func(http.Handler) http.Handler
	CSRFGuard   *csrf.Guard
	Logger      *slog.Logger

	// Health checks by dependency name, reported on /healthz.
	Checks map[string]HealthChecker
}

// NewRouter builds the full route tree.
//
// Route groups encode the auth preconditions: the public group needs nothing,
// /refresh needs only the refresh cookie (an expired access token must not
// lock the client out of refreshing), the protected group passes the gateway,
// and state-changing protected routes additionally pass the CSRF check.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(platformmw.RequestID)
	r.Use(platformmw.ClientIP)
	r.Use(platformmw.Recovery(d.Logger))
	r.Use(platformmw.Logger(d.Logger))
	r.Use(platformmw.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", d.Auth.handleRegister)
	r.Post("/verify/{token}", d.Auth.handleVerifyRegistration)
	r.Post("/login", d.Auth.handleLogin)
	r.Post("/verify", d.Auth.handleVerifyOTP)
	r.Post("/refresh", d.Auth.handleRefresh)

	r.Group(func(protected chi.Router) {
		protected.Use(d.RequireAuth)

		protected.Get("/me", d.Auth.handleMe)
		protected.Post("/refresh-csrf", d.Auth.handleRefreshCSRF)

		protected.Group(func(mutating chi.Router) {
			mutating.Use(csrf.Middleware(d.CSRFGuard, d.Logger))
			mutating.Post("/logout", d.Auth.handleLogout)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				report[name] = "unreachable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		// Degraded responses keep the envelope shape with success=false.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(httputil.Envelope{
			Success: status == http.StatusOK,
			Data:    map[string]any{"checks": report},
		})
	}
}
