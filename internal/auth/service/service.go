// Package service is the auth boundary: sign-in, sign-up, federated sign-in,
// account maintenance and team membership changes. Every operation validates
// its input, consults the stores and providers, and returns a *domain.Result
// or an *apperr.Error.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	"saasgate/backend/internal/activity"
	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	identitydomain "saasgate/backend/internal/identity/domain"
	invitationdomain "saasgate/backend/internal/invitation/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
	"saasgate/backend/internal/platform/errreport"
	"saasgate/backend/internal/policy/engine"
	"saasgate/backend/internal/security"
	"saasgate/backend/internal/telemetry/otel"
	userdomain "saasgate/backend/internal/user/domain"
)

// UserRepo is the user store used by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Update(ctx context.Context, u *userdomain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	UpsertFederated(ctx context.Context, u *userdomain.User) (*userdomain.User, error)
}

// MembershipRepo is the membership store used by the auth service.
type MembershipRepo interface {
	GetForUser(ctx context.Context, userID string) (*membershipdomain.Membership, error)
	ListForUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error)
	GetByIDAndTeam(ctx context.Context, id, teamID string) (*membershipdomain.Membership, error)
	IsMemberByEmail(ctx context.Context, teamID, email string) (bool, error)
	Create(ctx context.Context, m *membershipdomain.Membership) error
	DeleteByIDAndTeam(ctx context.Context, id, teamID string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
	CountOwnersByTeam(ctx context.Context, teamID string) (int64, error)
	CountByTeam(ctx context.Context, teamID string) (int64, error)
}

// InvitationRepo is the invitation store used by the auth service.
type InvitationRepo interface {
	GetByID(ctx context.Context, id string) (*invitationdomain.Invitation, error)
	GetPending(ctx context.Context, teamID, email string) (*invitationdomain.Invitation, error)
	Create(ctx context.Context, inv *invitationdomain.Invitation) error
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Compare(hash string, password []byte) error
}

// Sessions issues, resolves and revokes session tokens.
type Sessions interface {
	Issue(ctx context.Context, userID string) (security.Token, error)
	Resolve(ctx context.Context, token string) (security.Claims, error)
	Revoke(ctx context.Context, token string) error
}

// IdentityProvider is the external account service.
type IdentityProvider interface {
	BeginOAuth(ctx context.Context, provider, callbackURL string) (identitydomain.Flow, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*identitydomain.Identity, error)
	SignUpWithPassword(ctx context.Context, email, password string) (string, error)
	DeleteIdentity(ctx context.Context, externalID string) error
}

// Checkout resolves where to send a user who wants to buy a plan.
type Checkout interface {
	CheckoutRedirect(ctx context.Context, userID, priceID string) (string, error)
}

// Deps are the collaborators of the auth service. Activity, Reporter and Metrics may be nil.
type Deps struct {
	Users       UserRepo
	Memberships MembershipRepo
	Invitations InvitationRepo
	Activity    activity.Recorder
	Hasher      PasswordHasher
	Sessions    Sessions
	Identity    IdentityProvider
	Checkout    Checkout
	Authorizer  engine.Authorizer
	Reporter    errreport.Reporter
	Metrics     *otel.Metrics
}

// Options tune the auth service.
type Options struct {
	// Timeout bounds the collaborator calls of one operation. Default 10s.
	Timeout time.Duration
	// BaseURL is used to build OAuth callbacks when the request carries no origin.
	BaseURL string
	// OAuthProvider is the provider used when a federated sign-in names none.
	OAuthProvider string
}

// Service implements the auth operations.
type Service struct {
	Deps
	timeout       time.Duration
	baseURL       string
	oauthProvider string
	dummyHash     string
	now           func() time.Time
}

// NewService returns an auth service.
func NewService(d Deps, opts Options) *Service {
	if d.Reporter == nil {
		d.Reporter = errreport.Noop{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.OAuthProvider == "" {
		opts.OAuthProvider = "github"
	}
	s := &Service{
		Deps:          d,
		timeout:       opts.Timeout,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		oauthProvider: opts.OAuthProvider,
		now:           time.Now,
	}
	// Compared against when the email is unknown so both paths cost one hash.
	seed := make([]byte, 16)
	_, _ = rand.Read(seed)
	if h, err := d.Hasher.Hash(seed); err == nil {
		s.dummyHash = h
	}
	return s
}

// begin bounds the operation and returns the function that finalises err:
// untyped errors are logged, reported and downgraded to Upstream.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func(errp *error) {
		cancel()
		err := *errp
		if err != nil {
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				ae = apperr.Upstream(err)
				*errp = ae
			}
			if ae.Kind == apperr.KindUpstream {
				slog.Error("auth: operation failed", "operation", op, "error", ae.Err)
				s.Reporter.Report(ctx, ae.Err, map[string]string{"operation": op})
			}
		}
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.KindOf(*errp))
		}
		s.Metrics.OperationDone(ctx, op, outcome, time.Since(start))
	}
}

// authenticate resolves the session into the active user.
func (s *Service) authenticate(ctx context.Context, meta domain.RequestMeta) (*userdomain.User, error) {
	claims, err := s.Sessions.Resolve(ctx, meta.SessionToken)
	if err != nil {
		return nil, apperr.Unauthenticated()
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthenticated()
	}
	return u, nil
}

// teamOf returns the user's team id, or "" when teamless or on lookup failure.
func (s *Service) teamOf(ctx context.Context, userID string) string {
	m, err := s.Memberships.GetForUser(ctx, userID)
	if err != nil {
		slog.Warn("auth: membership lookup failed", "user_id", userID, "error", err)
		return ""
	}
	if m == nil {
		return ""
	}
	return m.TeamID
}

// record writes an activity entry and returns the storage error.
func (s *Service) record(ctx context.Context, meta domain.RequestMeta, teamID, userID string, action activitydomain.ActionType, metadata string) error {
	if s.Activity == nil {
		return nil
	}
	return s.Activity.Record(ctx, activity.Event{
		TeamID:    teamID,
		UserID:    userID,
		Action:    action,
		IPAddress: meta.IPAddress,
		Metadata:  metadata,
	})
}

// recordBestEffort records and logs a failure without failing the operation.
func (s *Service) recordBestEffort(ctx context.Context, meta domain.RequestMeta, teamID, userID string, action activitydomain.ActionType, metadata string) {
	if err := s.record(ctx, meta, teamID, userID, action, metadata); err != nil {
		slog.Warn("auth: activity not recorded", "action", action, "user_id", userID, "error", err)
	}
}

// revoke denylists the session token; failures are logged.
func (s *Service) revoke(ctx context.Context, token string) {
	if err := s.Sessions.Revoke(ctx, token); err != nil {
		slog.Warn("auth: session revocation failed", "error", err)
	}
}

func (s *Service) origin(meta domain.RequestMeta) string {
	if meta.Origin != "" {
		return strings.TrimRight(meta.Origin, "/")
	}
	return s.baseURL
}

// localPath returns p when it is a same-site absolute path, else fallback.
func localPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}

func toView(u *userdomain.User, m *membershipdomain.Membership) *domain.UserView {
	v := &domain.UserView{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
	if m != nil {
		v.TeamID = m.TeamID
		v.TeamRole = string(m.Role)
	}
	return v
}
