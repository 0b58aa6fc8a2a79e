package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"saasgate/backend/internal/auth/domain"
	userdomain "saasgate/backend/internal/user/domain"
)

const oauthError = "oauth_error"

var (
	errNoCode        = errors.New("missing authorization code")
	errStateMismatch = errors.New("oauth state nonce mismatch")
)

// BeginFederatedSignIn returns a redirect to the provider's consent page. The
// caller's intents ride on the callback URL. Provider failures redirect back
// to sign-in with error=oauth_error.
func (s *Service) BeginFederatedSignIn(ctx context.Context, meta domain.RequestMeta, in FederatedBeginInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "begin_federated_sign_in")
	defer done(&err)

	provider := in.Provider
	if provider == "" {
		provider = s.oauthProvider
	}
	callback := domain.WithQuery(s.origin(meta)+"/auth/callback",
		[2]string{"redirect", in.Redirect},
		[2]string{"priceId", in.PriceID},
		[2]string{"inviteId", in.InviteID},
	)
	flow, err := s.Identity.BeginOAuth(ctx, provider, callback)
	if err != nil {
		slog.Warn("auth: oauth begin failed", "provider", provider, "error", err)
		s.Reporter.Report(ctx, err, map[string]string{"operation": "begin_federated_sign_in", "provider": provider})
		return &domain.Result{Redirect: domain.WithQuery("/sign-in", [2]string{"error", oauthError})}, nil
	}
	return &domain.Result{Redirect: flow.URL, Verifier: flow.Verifier, OAuthNonce: flow.Nonce}, nil
}

// CompleteFederatedSignIn handles the OAuth callback. It always yields a
// redirect: onward with a session on success, back with error=oauth_error otherwise.
func (s *Service) CompleteFederatedSignIn(ctx context.Context, meta domain.RequestMeta, in FederatedCompleteInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "complete_federated_sign_in")
	defer done(&err)

	res, ferr := s.completeFederated(ctx, meta, in)
	if ferr != nil {
		slog.Warn("auth: oauth callback failed", "error", ferr)
		return &domain.Result{Redirect: domain.WithQuery(localPath(in.Redirect, "/"), [2]string{"error", oauthError})}, nil
	}
	return res, nil
}

func (s *Service) completeFederated(ctx context.Context, meta domain.RequestMeta, in FederatedCompleteInput) (*domain.Result, error) {
	if in.Code == "" {
		return nil, errNoCode
	}
	// A nonce on either side means the flow was started with one; both must match.
	if (in.Nonce != "" || in.ExpectedNonce != "") && subtle.ConstantTimeCompare([]byte(in.Nonce), []byte(in.ExpectedNonce)) != 1 {
		return nil, errStateMismatch
	}
	ident, err := s.Identity.ExchangeCode(ctx, in.Code, in.Verifier)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.UpsertFederated(ctx, &userdomain.User{
		ID:    ident.ExternalID,
		Email: ident.Email,
		Name:  ident.Name,
		Role:  userdomain.RoleMember,
	})
	if err != nil {
		return nil, err
	}
	tok, err := s.openSession(ctx, meta, u.ID, s.teamOf(ctx, u.ID))
	if err != nil {
		return nil, err
	}

	if in.Redirect == redirectCheckout && in.PriceID != "" {
		target, err := s.Checkout.CheckoutRedirect(ctx, u.ID, in.PriceID)
		if err != nil {
			return nil, err
		}
		return &domain.Result{Redirect: target, Session: &tok}, nil
	}
	target := domain.WithQuery(localPath(in.Redirect, "/dashboard"),
		[2]string{"priceId", in.PriceID},
		[2]string{"inviteId", in.InviteID},
	)
	return &domain.Result{Redirect: target, Session: &tok}, nil
}
