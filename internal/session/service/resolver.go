// Package service issues, resolves and revokes session tokens.
package service

import (
	"context"
	"errors"
	"log/slog"

	"saasgate/backend/internal/security"
	sessionrepo "saasgate/backend/internal/session/repository"
	"saasgate/backend/internal/telemetry/otel"
)

// ErrNoSession means the request carries no usable session. Callers treat it as anonymous.
var ErrNoSession = errors.New("no valid session")

// Codec is the token half of a session.
type Codec interface {
	Issue(userID string) (security.Token, error)
	Verify(token string) (security.Claims, error)
}

// Resolver wraps the codec with the revocation denylist.
type Resolver struct {
	codec    Codec
	denylist sessionrepo.Denylist
	metrics  *otel.Metrics
}

// NewResolver returns a resolver. denylist and metrics may be nil.
func NewResolver(codec Codec, denylist sessionrepo.Denylist, metrics *otel.Metrics) *Resolver {
	return &Resolver{codec: codec, denylist: denylist, metrics: metrics}
}

// Issue mints a session token for userID.
func (r *Resolver) Issue(_ context.Context, userID string) (security.Token, error) {
	return r.codec.Issue(userID)
}

// Resolve verifies token and checks it has not been revoked. Every failure
// wraps ErrNoSession. A denylist outage fails closed.
func (r *Resolver) Resolve(ctx context.Context, token string) (security.Claims, error) {
	if token == "" {
		return security.Claims{}, ErrNoSession
	}
	claims, err := r.codec.Verify(token)
	if err != nil {
		r.metrics.SessionVerified(ctx, string(security.ReasonOf(err)))
		return security.Claims{}, errors.Join(ErrNoSession, err)
	}
	if r.denylist != nil && claims.TokenID != "" {
		revoked, err := r.denylist.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			slog.Warn("session: denylist lookup failed", "error", err)
			return security.Claims{}, errors.Join(ErrNoSession, err)
		}
		if revoked {
			r.metrics.SessionVerified(ctx, otel.VerifyRevoked)
			return security.Claims{}, ErrNoSession
		}
	}
	r.metrics.SessionVerified(ctx, otel.VerifyOK)
	return claims, nil
}

// Revoke denylists the token's id for its remaining lifetime. Tokens that do
// not verify need no revocation and return nil.
func (r *Resolver) Revoke(ctx context.Context, token string) error {
	if token == "" || r.denylist == nil {
		return nil
	}
	claims, err := r.codec.Verify(token)
	if err != nil || claims.TokenID == "" {
		return nil
	}
	return r.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
}
