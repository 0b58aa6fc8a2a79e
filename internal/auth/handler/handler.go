// Package handler exposes the auth service over HTTP: form or JSON in, JSON
// results or 303 redirects out, with the session carried in a cookie.
package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/auth/service"
	"saasgate/backend/internal/platform/httpx"
	"saasgate/backend/internal/server/middleware"
)

// Service is the auth boundary as used by the HTTP adapter.
type Service interface {
	SignIn(ctx context.Context, meta domain.RequestMeta, in service.SignInInput) (*domain.Result, error)
	SignUp(ctx context.Context, meta domain.RequestMeta, in service.SignUpInput) (*domain.Result, error)
	SignOut(ctx context.Context, meta domain.RequestMeta) (*domain.Result, error)
	BeginFederatedSignIn(ctx context.Context, meta domain.RequestMeta, in service.FederatedBeginInput) (*domain.Result, error)
	CompleteFederatedSignIn(ctx context.Context, meta domain.RequestMeta, in service.FederatedCompleteInput) (*domain.Result, error)
	CurrentUser(ctx context.Context, meta domain.RequestMeta) (*domain.Result, error)
	UpdateAccount(ctx context.Context, meta domain.RequestMeta, in service.UpdateAccountInput) (*domain.Result, error)
	UpdatePassword(ctx context.Context, meta domain.RequestMeta, in service.UpdatePasswordInput) (*domain.Result, error)
	DeleteAccount(ctx context.Context, meta domain.RequestMeta, in service.DeleteAccountInput) (*domain.Result, error)
	InviteTeamMember(ctx context.Context, meta domain.RequestMeta, in service.InviteInput) (*domain.Result, error)
	RemoveTeamMember(ctx context.Context, meta domain.RequestMeta, in service.RemoveMemberInput) (*domain.Result, error)
}

// Handler serves the auth, account and team endpoints.
type Handler struct {
	svc     Service
	cookies httpx.Cookies
}

// New returns an auth handler.
func New(svc Service, cookies httpx.Cookies) *Handler {
	return &Handler{svc: svc, cookies: cookies}
}

// Routes mounts the endpoints. limited wraps the credential endpoints.
func (h *Handler) Routes(r chi.Router, limited func(http.Handler) http.Handler) {
	r.With(limited).Post("/api/auth/sign-in", h.SignIn)
	r.With(limited).Post("/api/auth/sign-up", h.SignUp)
	r.Post("/api/auth/sign-in/oauth", h.BeginOAuth)
	r.Post("/api/auth/sign-out", h.SignOut)
	r.Get("/auth/callback", h.Callback)

	r.Get("/api/account", h.Account)
	r.Post("/api/account", h.UpdateAccount)
	r.Post("/api/account/password", h.UpdatePassword)
	r.Post("/api/account/delete", h.DeleteAccount)

	r.Post("/api/team/invitations", h.Invite)
	r.Post("/api/team/members/remove", h.RemoveMember)
}

func (h *Handler) meta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress:    middleware.ClientIP(r.Context()),
		UserAgent:    r.UserAgent(),
		SessionToken: h.cookies.SessionToken(r),
		Origin:       r.Header.Get("Origin"),
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, res *domain.Result, err error) {
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteResult(w, r, h.cookies, res)
}

// decodeAnd decodes the body into In and runs op.
func decodeAnd[In any](h *Handler, op func(context.Context, domain.RequestMeta, In) (*domain.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}
		res, err := op(r.Context(), h.meta(r), in)
		h.respond(w, r, res, err)
	}
}

// SignIn POST /api/auth/sign-in
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.SignIn)(w, r)
}

// SignUp POST /api/auth/sign-up
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.SignUp)(w, r)
}

// SignOut POST /api/auth/sign-out
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SignOut(r.Context(), h.meta(r))
	if err != nil {
		// The cookie is useless either way.
		h.cookies.ClearSession(w)
	}
	h.respond(w, r, res, err)
}

// BeginOAuth stores the PKCE verifier and sends the caller to the provider.
// POST /api/auth/sign-in/oauth
func (h *Handler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	in := service.FederatedBeginInput{
		Provider: r.FormValue("provider"),
		Redirect: r.FormValue("redirect"),
		PriceID:  r.FormValue("priceId"),
		InviteID: r.FormValue("inviteId"),
	}
	res, err := h.svc.BeginFederatedSignIn(r.Context(), h.meta(r), in)
	if err == nil && res.Verifier != "" {
		h.cookies.SetVerifier(w, res.Verifier)
	}
	if err == nil && res.OAuthNonce != "" {
		h.cookies.SetNonce(w, res.OAuthNonce)
	}
	h.respond(w, r, res, err)
}

// callbackIntents are the keys a provider may return folded into state.
var callbackIntents = []string{"redirect", "priceId", "inviteId"}

// Callback completes the OAuth flow. It always redirects and always drops the
// verifier and nonce cookies.
// GET /auth/callback
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nonce := ""
	if st := q.Get("state"); st != "" {
		if carried, err := url.ParseQuery(st); err == nil {
			nonce = carried.Get("nonce")
			for _, k := range callbackIntents {
				if q.Get(k) == "" && carried.Get(k) != "" {
					q.Set(k, carried.Get(k))
				}
			}
		}
	}
	verifier := h.cookies.Verifier(r)
	expected := h.cookies.Nonce(r)
	h.cookies.ClearVerifier(w)
	h.cookies.ClearNonce(w)

	res, err := h.svc.CompleteFederatedSignIn(r.Context(), h.meta(r), service.FederatedCompleteInput{
		Code:          q.Get("code"),
		Verifier:      verifier,
		Nonce:         nonce,
		ExpectedNonce: expected,
		Redirect:      q.Get("redirect"),
		PriceID:       q.Get("priceId"),
		InviteID:      q.Get("inviteId"),
	})
	h.respond(w, r, res, err)
}

// Account GET /api/account
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CurrentUser(r.Context(), h.meta(r))
	h.respond(w, r, res, err)
}

// UpdateAccount POST /api/account
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.UpdateAccount)(w, r)
}

// UpdatePassword POST /api/account/password
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.UpdatePassword)(w, r)
}

// DeleteAccount POST /api/account/delete
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.DeleteAccount)(w, r)
}

// Invite POST /api/team/invitations
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.InviteTeamMember)(w, r)
}

// RemoveMember POST /api/team/members/remove
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	decodeAnd(h, h.svc.RemoveTeamMember)(w, r)
}
