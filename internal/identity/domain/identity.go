package domain

import "errors"

var (
	// ErrIdentityConflict means the provider already has an account for the email.
	ErrIdentityConflict = errors.New("identity already registered")
	// ErrUnsupported means the provider cannot perform the requested flow.
	ErrUnsupported = errors.New("identity flow not supported by provider")
)

// Identity is a verified external account returned by an identity provider.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// Flow is the start of an OAuth redirect: the consent URL and, for PKCE, the
// verifier the caller must keep until the callback.
type Flow struct {
	URL      string
	Verifier string
	// Nonce is the random value embedded in the OAuth state as "nonce". Empty when
	// the provider manages state itself.
	Nonce string
}
