package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	authhandler "saasgate/backend/internal/auth/handler"
	billinghandler "saasgate/backend/internal/billing/handler"
	healthhandler "saasgate/backend/internal/health/handler"
	"saasgate/backend/internal/platform/errreport"
	"saasgate/backend/internal/server/middleware"
)

// Deps holds the handlers and middleware collaborators of the HTTP server.
type Deps struct {
	Auth    *authhandler.Handler
	Billing *billinghandler.Handler
	// Health serves /healthz. If nil, /healthz always answers ok.
	Health *healthhandler.Handler
	// Limiter guards sign-in and sign-up. If nil, they are not limited.
	Limiter *middleware.RateLimiter

	Logger   *slog.Logger
	Tracer   trace.Tracer
	Reporter errreport.Reporter
	// TrustProxy honors X-Forwarded-For and X-Real-IP for the client address.
	TrustProxy bool
}

// NewRouter returns the HTTP handler.
//
// Middleware order: Recovery → ClientAddr → Telemetry. /healthz is not logged or traced.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Reporter))
	r.Use(middleware.ClientAddr(deps.TrustProxy))
	r.Use(middleware.Telemetry(deps.Logger, deps.Tracer, map[string]bool{"/healthz": true}))

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	}

	limited := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limited = deps.Limiter.Middleware
	}
	if deps.Auth != nil {
		deps.Auth.Routes(r, limited)
	}
	if deps.Billing != nil {
		deps.Billing.Routes(r)
	}
	return r
}
