// Package service turns checkout intents into Stripe redirects and writes the
// purchased subscription back onto the buyer's team.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authdomain "saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/billing/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/errreport"
	"saasgate/backend/internal/security"
	teamdomain "saasgate/backend/internal/team/domain"
	userdomain "saasgate/backend/internal/user/domain"
)

// Gateway is the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, team *teamdomain.Team, userID, priceID string) (string, error)
	CheckoutResult(ctx context.Context, sessionID string) (*domain.CheckoutResult, error)
}

// UserRepo is the minimal user repository needed by the billing service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// MembershipRepo is the minimal membership repository needed by the billing service.
type MembershipRepo interface {
	GetForUser(ctx context.Context, userID string) (*membershipdomain.Membership, error)
}

// TeamRepo is the minimal team repository needed by the billing service.
type TeamRepo interface {
	GetByID(ctx context.Context, id string) (*teamdomain.Team, error)
	UpdateSubscription(ctx context.Context, teamID string, sub teamdomain.Subscription) error
}

// SessionIssuer mints session tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (security.Token, error)
}

// Service implements checkout redirect and completion.
type Service struct {
	gateway     Gateway
	users       UserRepo
	memberships MembershipRepo
	teams       TeamRepo
	sessions    SessionIssuer
	reporter    errreport.Reporter
	timeout     time.Duration
}

// NewService returns a billing service. reporter may be nil.
func NewService(gateway Gateway, users UserRepo, memberships MembershipRepo, teams TeamRepo, sessions SessionIssuer, reporter errreport.Reporter, timeout time.Duration) *Service {
	if reporter == nil {
		reporter = errreport.Noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		gateway:     gateway,
		users:       users,
		memberships: memberships,
		teams:       teams,
		sessions:    sessions,
		reporter:    reporter,
		timeout:     timeout,
	}
}

// CheckoutRedirect returns where to send userID to buy priceID. A teamless user
// is sent to sign-up with the checkout intent preserved.
func (s *Service) CheckoutRedirect(ctx context.Context, userID, priceID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.memberships.GetForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return authdomain.WithQuery("/sign-up", [2]string{"redirect", "checkout"}, [2]string{"priceId", priceID}), nil
	}
	team, err := s.teams.GetByID(ctx, m.TeamID)
	if err != nil {
		return "", err
	}
	if team == nil {
		return authdomain.WithQuery("/sign-up", [2]string{"redirect", "checkout"}, [2]string{"priceId", priceID}), nil
	}
	return s.gateway.CreateCheckoutSession(ctx, team, userID, priceID)
}

// CompleteCheckout records the subscription from a finished checkout and signs the buyer in.
// It always yields a redirect: /pricing without a session id, /error on any failure.
func (s *Service) CompleteCheckout(ctx context.Context, sessionID string) *authdomain.Result {
	if sessionID == "" {
		return &authdomain.Result{Redirect: "/pricing"}
	}
	tok, err := s.completeCheckout(ctx, sessionID)
	if err != nil {
		slog.Error("billing: checkout completion failed", "session_id", sessionID, "error", err)
		s.reporter.Report(ctx, err, map[string]string{"operation": "complete_checkout"})
		return &authdomain.Result{Redirect: "/error"}
	}
	return &authdomain.Result{Redirect: "/dashboard", Session: &tok}
}

func (s *Service) completeCheckout(ctx context.Context, sessionID string) (security.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.gateway.CheckoutResult(ctx, sessionID)
	if err != nil {
		return security.Token{}, err
	}
	u, err := s.users.GetByID(ctx, res.UserID)
	if err != nil {
		return security.Token{}, err
	}
	if u == nil {
		return security.Token{}, errors.New("checkout user not found")
	}
	m, err := s.memberships.GetForUser(ctx, u.ID)
	if err != nil {
		return security.Token{}, err
	}
	if m == nil {
		return security.Token{}, domain.ErrNoTeam
	}
	if err := s.teams.UpdateSubscription(ctx, m.TeamID, res.Subscription); err != nil {
		return security.Token{}, err
	}
	return s.sessions.Issue(ctx, u.ID)
}
