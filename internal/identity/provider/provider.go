// Package provider implements identity providers: GoTrue (Supabase Auth),
// Google OAuth, and a local registrar for development.
package provider

import (
	"context"

	"saasgate/backend/internal/identity/domain"
)

// Provider registers password accounts and runs OAuth sign-in with an external identity service.
type Provider interface {
	// BeginOAuth returns the consent URL for provider that will redirect back to callbackURL.
	BeginOAuth(ctx context.Context, provider, callbackURL string) (domain.Flow, error)
	// ExchangeCode trades an authorization code (and PKCE verifier) for the verified identity.
	ExchangeCode(ctx context.Context, code, verifier string) (*domain.Identity, error)
	// SignUpWithPassword registers email and returns the provider's user id.
	// Returns domain.ErrIdentityConflict when the email is taken.
	SignUpWithPassword(ctx context.Context, email, password string) (string, error)
	// DeleteIdentity removes the provider account. Used to roll back a failed sign-up.
	DeleteIdentity(ctx context.Context, externalID string) error
}
