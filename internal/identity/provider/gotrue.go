package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"saasgate/backend/internal/identity/domain"
)

// GoTrueConfig configures the GoTrue (Supabase Auth) client.
type GoTrueConfig struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co. "/auth/v1" is appended.
	BaseURL string
	AnonKey string
	// ServiceRoleKey authorizes admin calls (DeleteIdentity). Optional.
	ServiceRoleKey string
	// EmailRedirectURL is where confirmation emails send users back to.
	EmailRedirectURL string
	HTTPClient       *http.Client
}

// GoTrue talks to the GoTrue REST API.
type GoTrue struct {
	cfg  GoTrueConfig
	base string
	hc   *http.Client
}

// NewGoTrue returns a GoTrue client. Errors when BaseURL or AnonKey is empty.
func NewGoTrue(cfg GoTrueConfig) (*GoTrue, error) {
	if cfg.BaseURL == "" || cfg.AnonKey == "" {
		return nil, errors.New("gotrue: base url and anon key are required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrue{cfg: cfg, base: strings.TrimRight(cfg.BaseURL, "/") + "/auth/v1", hc: hc}, nil
}

// apiError is GoTrue's error body. Older versions use msg, newer ones error_code.
type apiError struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

type gotrueUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]any    `json:"user_metadata"`
	Identities   []json.RawMessage `json:"identities"`
}

// BeginOAuth builds the authorize URL with a PKCE S256 challenge. No network call is made.
func (g *GoTrue) BeginOAuth(_ context.Context, provider, callbackURL string) (domain.Flow, error) {
	if provider == "" {
		return domain.Flow{}, errors.New("gotrue: provider is required")
	}
	verifier := oauth2.GenerateVerifier()
	q := url.Values{
		"provider":              {provider},
		"redirect_to":           {callbackURL},
		"code_challenge":        {oauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"s256"},
	}
	return domain.Flow{URL: g.base + "/authorize?" + q.Encode(), Verifier: verifier}, nil
}

// ExchangeCode completes the PKCE flow.
func (g *GoTrue) ExchangeCode(ctx context.Context, code, verifier string) (*domain.Identity, error) {
	if code == "" || verifier == "" {
		return nil, errors.New("gotrue: code and verifier are required")
	}
	var out struct {
		AccessToken string     `json:"access_token"`
		User        gotrueUser `json:"user"`
	}
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	status, err := g.do(ctx, http.MethodPost, "/token?grant_type=pkce", g.cfg.AnonKey, "", body, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gotrue: token exchange returned %d", status)
	}
	if out.User.ID == "" {
		return nil, errors.New("gotrue: token response has no user")
	}
	return &domain.Identity{
		ExternalID: out.User.ID,
		Email:      out.User.Email,
		Name:       displayName(out.User.UserMetadata),
	}, nil
}

// SignUpWithPassword registers the account. With email confirmation enabled GoTrue
// answers an existing address with a user that has no identities; that is a conflict too.
func (g *GoTrue) SignUpWithPassword(ctx context.Context, email, password string) (string, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"email": email},
	}
	path := "/signup"
	if g.cfg.EmailRedirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(g.cfg.EmailRedirectURL)
	}
	// The response is either the user itself or {"user": ..., "session": ...}.
	var out struct {
		gotrueUser
		User *gotrueUser `json:"user"`
	}
	status, err := g.do(ctx, http.MethodPost, path, g.cfg.AnonKey, "", body, &out)
	if err != nil {
		if isConflict(status, err) {
			return "", domain.ErrIdentityConflict
		}
		return "", err
	}
	u := out.gotrueUser
	if out.User != nil {
		u = *out.User
	}
	if u.ID == "" {
		return "", errors.New("gotrue: signup response has no user")
	}
	if u.Identities != nil && len(u.Identities) == 0 {
		return "", domain.ErrIdentityConflict
	}
	return u.ID, nil
}

// DeleteIdentity removes the user through the admin API.
func (g *GoTrue) DeleteIdentity(ctx context.Context, externalID string) error {
	if g.cfg.ServiceRoleKey == "" {
		return errors.New("gotrue: service role key not configured")
	}
	status, err := g.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(externalID), g.cfg.ServiceRoleKey, g.cfg.ServiceRoleKey, nil, nil)
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

// statusError carries a non-2xx answer.
type statusError struct {
	Status int
	Body   apiError
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s", e.Status, e.Body.text())
}

func isConflict(status int, err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	if se.Body.ErrorCode == "user_already_exists" || se.Body.ErrorCode == "email_exists" {
		return true
	}
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		return strings.Contains(strings.ToLower(se.Body.text()), "already registered")
	}
	return false
}

func (g *GoTrue) do(ctx context.Context, method, path, apiKey, bearer string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base+path, body)
	if err != nil {
		return 0, fmt.Errorf("gotrue: build request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("gotrue: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, &se.Body)
		return resp.StatusCode, se
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("gotrue: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func displayName(meta map[string]any) string {
	for _, k := range []string{"full_name", "name"} {
		if s, ok := meta[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
