// Package handler exposes checkout over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authdomain "saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/platform/apperr"
	"saasgate/backend/internal/platform/httpx"
	"saasgate/backend/internal/security"
)

// Service is the billing service as used by the HTTP adapter.
type Service interface {
	CheckoutRedirect(ctx context.Context, userID, priceID string) (string, error)
	CompleteCheckout(ctx context.Context, sessionID string) *authdomain.Result
}

// SessionResolver resolves the session cookie into claims.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (security.Claims, error)
}

// Handler serves the checkout endpoints.
type Handler struct {
	svc      Service
	sessions SessionResolver
	cookies  httpx.Cookies
}

func New(svc Service, sessions SessionResolver, cookies httpx.Cookies) *Handler {
	return &Handler{svc: svc, sessions: sessions, cookies: cookies}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/stripe/checkout", h.Complete)
	r.Post("/api/stripe/checkout", h.Start)
}

// Start sends a signed-in caller to checkout for priceId. Anonymous callers
// go to sign-up with the intent preserved.
// POST /api/stripe/checkout
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	priceID := r.FormValue("priceId")
	if priceID == "" {
		httpx.WriteError(w, apperr.Validation(map[string]string{"priceId": "This field is required."}))
		return
	}
	claims, err := h.sessions.Resolve(r.Context(), h.cookies.SessionToken(r))
	if err != nil {
		target := authdomain.WithQuery("/sign-up", [2]string{"redirect", "checkout"}, [2]string{"priceId", priceID})
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	target, err := h.svc.CheckoutRedirect(r.Context(), claims.UserID, priceID)
	if err != nil {
		slog.Error("billing: checkout redirect failed", "user_id", claims.UserID, "price_id", priceID, "error", err)
		httpx.WriteError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Complete is Stripe's success redirect target. It always redirects.
// GET /api/stripe/checkout?session_id=...
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	res := h.svc.CompleteCheckout(r.Context(), r.URL.Query().Get("session_id"))
	httpx.WriteResult(w, r, h.cookies, res)
}
