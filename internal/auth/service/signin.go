package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/pool"

	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/platform/apperr"
	"saasgate/backend/internal/security"
)

const (
	opSignIn  = "sign_in"
	opSignOut = "sign_out"

	redirectCheckout = "checkout"
)

// SignIn checks email and password and opens a session. Unknown email, missing
// password hash and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, meta domain.RequestMeta, in SignInInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, opSignIn)
	defer done(&err)

	in.Email = strings.TrimSpace(in.Email)
	values := map[string]string{"email": in.Email}
	if err := check(in, values); err != nil {
		return nil, err
	}

	u, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.HasPassword() {
		_ = s.Hasher.Compare(s.dummyHash, []byte(in.Password))
		return nil, apperr.InvalidCredentials().WithValues(values)
	}
	if err := s.Hasher.Compare(u.PasswordHash, []byte(in.Password)); err != nil {
		return nil, apperr.InvalidCredentials().WithValues(values)
	}
	s.upgradeHash(ctx, u.ID, u.PasswordHash, in.Password)

	teamID := s.teamOf(ctx, u.ID)
	tok, err := s.openSession(ctx, meta, u.ID, teamID)
	if err != nil {
		return nil, err
	}

	redirect := "/dashboard"
	if in.Redirect == redirectCheckout && in.PriceID != "" {
		redirect, err = s.Checkout.CheckoutRedirect(ctx, u.ID, in.PriceID)
		if err != nil {
			return nil, fmt.Errorf("checkout redirect: %w", err)
		}
	}
	return &domain.Result{Redirect: redirect, Session: &tok}, nil
}

// rehasher is implemented by hashers that can tell when a stored hash is outdated.
type rehasher interface {
	NeedsRehash(hash string) bool
}

// upgradeHash replaces a legacy or weaker hash after a successful password check.
// Failures are logged and never fail sign-in.
func (s *Service) upgradeHash(ctx context.Context, userID, hash, password string) {
	rh, ok := s.Hasher.(rehasher)
	if !ok || !rh.NeedsRehash(hash) {
		return
	}
	fresh, err := s.Hasher.Hash([]byte(password))
	if err == nil {
		err = s.Users.UpdatePasswordHash(ctx, userID, fresh)
	}
	if err != nil {
		slog.Warn("auth: password rehash failed", "user_id", userID, "error", err)
	}
}

// openSession issues a session and records SIGN_IN concurrently. A session
// failure fails the call; an activity failure alone is logged.
func (s *Service) openSession(ctx context.Context, meta domain.RequestMeta, userID, teamID string) (security.Token, error) {
	var (
		tok        security.Token
		sessionErr error
	)
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		tok, sessionErr = s.Sessions.Issue(ctx, userID)
		if sessionErr != nil {
			return fmt.Errorf("issue session: %w", sessionErr)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		if err := s.record(ctx, meta, teamID, userID, activitydomain.ActionSignIn, ""); err != nil {
			return fmt.Errorf("record sign-in: %w", err)
		}
		return nil
	})
	err := p.Wait()
	if sessionErr != nil {
		return security.Token{}, err
	}
	if err != nil {
		slog.Warn("auth: sign-in activity not recorded", "user_id", userID, "error", err)
	}
	return tok, nil
}

// SignOut records SIGN_OUT, revokes the token and clears the cookie.
func (s *Service) SignOut(ctx context.Context, meta domain.RequestMeta) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, opSignOut)
	defer done(&err)

	claims, err := s.Sessions.Resolve(ctx, meta.SessionToken)
	if err != nil {
		return nil, apperr.Unauthenticated()
	}
	s.recordBestEffort(ctx, meta, s.teamOf(ctx, claims.UserID), claims.UserID, activitydomain.ActionSignOut, "")
	s.revoke(ctx, meta.SessionToken)
	return &domain.Result{Redirect: "/sign-in", ClearSession: true}, nil
}

// CurrentUser resolves the session into the signed-in user.
func (s *Service) CurrentUser(ctx context.Context, meta domain.RequestMeta) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "current_user")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	m, err := s.Memberships.GetForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Result{User: toView(u, m)}, nil
}
