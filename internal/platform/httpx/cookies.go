// Package httpx holds the HTTP plumbing shared by the handlers: cookies,
// form decoding and the JSON and redirect responses.
package httpx

import (
	"net/http"
	"time"

	"saasgate/backend/internal/security"
)

const (
	// VerifierCookie holds the PKCE verifier between the OAuth redirect and the callback.
	VerifierCookie = "oauth_verifier"
	// NonceCookie holds the OAuth state nonce for the same window.
	NonceCookie    = "oauth_nonce"
	verifierMaxAge = 10 * 60
)

// Cookies writes and reads the session and OAuth verifier cookies.
type Cookies struct {
	SessionName string
	Secure      bool
}

func (c Cookies) sessionName() string {
	if c.SessionName == "" {
		return "session"
	}
	return c.SessionName
}

func (c Cookies) base(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSession stores tok in the session cookie until it expires.
func (c Cookies) SetSession(w http.ResponseWriter, tok security.Token) {
	ck := c.base(c.sessionName(), tok.Value)
	ck.Expires = tok.ExpiresAt
	http.SetCookie(w, ck)
}

// ClearSession expires the session cookie.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	ck := c.base(c.sessionName(), "")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

// SessionToken returns the session cookie value, or "".
func (c Cookies) SessionToken(r *http.Request) string {
	ck, err := r.Cookie(c.sessionName())
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c Cookies) SetVerifier(w http.ResponseWriter, verifier string) {
	c.setFlow(w, VerifierCookie, verifier)
}

func (c Cookies) Verifier(r *http.Request) string {
	return flowValue(r, VerifierCookie)
}

func (c Cookies) ClearVerifier(w http.ResponseWriter) {
	c.clearFlow(w, VerifierCookie)
}

func (c Cookies) SetNonce(w http.ResponseWriter, nonce string) {
	c.setFlow(w, NonceCookie, nonce)
}

func (c Cookies) Nonce(r *http.Request) string {
	return flowValue(r, NonceCookie)
}

func (c Cookies) ClearNonce(w http.ResponseWriter) {
	c.clearFlow(w, NonceCookie)
}

func (c Cookies) setFlow(w http.ResponseWriter, name, value string) {
	ck := c.base(name, value)
	ck.MaxAge = verifierMaxAge
	http.SetCookie(w, ck)
}

func (c Cookies) clearFlow(w http.ResponseWriter, name string) {
	ck := c.base(name, "")
	ck.MaxAge = -1
	http.SetCookie(w, ck)
}

func flowValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
