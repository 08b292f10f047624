// Package http assembles the public HTTP API from the per-context handlers.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	compliancehandler "github.com/texlink-oficial/texlink/internal/compliance/handler"
	credentialhandler "github.com/texlink-oficial/texlink/internal/credential/handler"
	"github.com/texlink-oficial/texlink/internal/platform/middleware"
	verificationhandler "github.com/texlink-oficial/texlink/internal/verification/handler"
)

const requestTimeout = 60 * time.Second

// Deps collects everything the router mounts.
type Deps struct {
	Credentials  *credentialhandler.Handler
	Compliance   *compliancehandler.Handler
	Verification *verificationhandler.Handler

	JWTValidator middleware.JWTValidator
	Logger       *slog.Logger

	// Health reports readiness of backing stores; nil checks nothing.
	Health func(r *http.Request) error
}

// New builds the router: observability endpoints on the bare chain, the API
// under authentication.
func New(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))

		deps.Credentials.Register(api)
		deps.Compliance.Register(api)
		deps.Verification.Register(api)
	})

	return r
}
