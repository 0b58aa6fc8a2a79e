package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	authdomain "saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/platform/httpx"
	"saasgate/backend/internal/security"
)

type stubBilling struct {
	userID, priceID, sessionID string
	redirectErr                error
}

func (s *stubBilling) CheckoutRedirect(ctx context.Context, userID, priceID string) (string, error) {
	s.userID, s.priceID = userID, priceID
	if s.redirectErr != nil {
		return "", s.redirectErr
	}
	return "https://checkout.stripe.test/" + priceID, nil
}

func (s *stubBilling) CompleteCheckout(ctx context.Context, sessionID string) *authdomain.Result {
	s.sessionID = sessionID
	if sessionID == "" {
		return &authdomain.Result{Redirect: "/pricing"}
	}
	return &authdomain.Result{Redirect: "/dashboard", Session: &security.Token{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)}}
}

type stubSessions map[string]string

func (s stubSessions) Resolve(ctx context.Context, token string) (security.Claims, error) {
	if id, ok := s[token]; ok {
		return security.Claims{UserID: id}, nil
	}
	return security.Claims{}, errors.New("no session")
}

func router(svc *stubBilling) http.Handler {
	r := chi.NewRouter()
	New(svc, stubSessions{"tok-1": "user-1"}, httpx.Cookies{}).Routes(r)
	return r
}

func TestComplete(t *testing.T) {
	svc := &stubBilling{}
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stripe/checkout?session_id=cs_123", nil))

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("status = %d location = %q", w.Code, w.Header().Get("Location"))
	}
	if svc.sessionID != "cs_123" {
		t.Errorf("session id = %q", svc.sessionID)
	}
	if c := w.Result().Cookies(); len(c) != 1 || c[0].Value != "tok" {
		t.Errorf("cookies = %+v", c)
	}

	w = httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stripe/checkout", nil))
	if w.Header().Get("Location") != "/pricing" {
		t.Errorf("location = %q", w.Header().Get("Location"))
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name         string
		cookie       string
		body         string
		wantStatus   int
		wantLocation string
	}{
		{"signed in", "tok-1", "priceId=price_1", http.StatusSeeOther, "https://checkout.stripe.test/price_1"},
		{"anonymous", "", "priceId=price_1", http.StatusSeeOther, "/sign-up?redirect=checkout&priceId=price_1"},
		{"missing price", "tok-1", "", http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubBilling{}
			r := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router(svc).ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestStart_GatewayFailure(t *testing.T) {
	svc := &stubBilling{redirectErr: errors.New("stripe down")}
	r := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader("priceId=price_1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(&http.Cookie{Name: "session", Value: "tok-1"})
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, r)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if svc.userID != "user-1" {
		t.Errorf("user = %q", svc.userID)
	}
}
