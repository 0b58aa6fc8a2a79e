// Package domain holds the request metadata and result shapes shared by the
// auth and billing flows.
package domain

import (
	"net/url"
	"strings"

	"saasgate/backend/internal/security"
)

// RequestMeta is what the transport knows about the caller. Operations never
// read ambient request state.
type RequestMeta struct {
	IPAddress    string
	UserAgent    string
	SessionToken string
	// Origin is the scheme://host the client used, for building callback URLs.
	Origin string
}

// Result is a successful outcome. The transport turns it into cookies, a
// redirect, or a JSON body.
type Result struct {
	// Redirect is a path or absolute URL to send the client to; empty for none.
	Redirect string
	// Session is set when a new session cookie must be written.
	Session *security.Token
	// ClearSession asks the transport to delete the session cookie.
	ClearSession bool
	// Verifier is the PKCE verifier to keep until the OAuth callback.
	Verifier string
	// OAuthNonce must come back in the callback state; kept next to the verifier.
	OAuthNonce string
	Message    string
	User       *UserView
}

// UserView is the public projection of the signed-in user.
type UserView struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	TeamID string `json:"teamId,omitempty"`
	// TeamRole is the caller's role within TeamID.
	TeamRole string `json:"teamRole,omitempty"`
}

// WithQuery appends the non-empty params to path, keeping their order.
func WithQuery(path string, params ...[2]string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, kv := range params {
		if kv[1] == "" {
			continue
		}
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
		sep = "&"
	}
	return b.String()
}
