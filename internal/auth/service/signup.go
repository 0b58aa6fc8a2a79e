package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	identitydomain "saasgate/backend/internal/identity/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
	userdomain "saasgate/backend/internal/user/domain"
)

const (
	opSignUp = "sign_up"

	rollbackTimeout = 10 * time.Second
)

func accountExists(values map[string]string) *apperr.Error {
	return apperr.New(apperr.KindAccountExists, "User already exists.").WithValues(values)
}

// SignUp registers with the identity provider, mirrors the account locally,
// redeems an invitation when one is given, and opens a session. If the local
// insert fails after the provider accepted the account, the provider account is
// deleted again.
func (s *Service) SignUp(ctx context.Context, meta domain.RequestMeta, in SignUpInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, opSignUp)
	defer done(&err)

	in.Email = strings.TrimSpace(in.Email)
	values := map[string]string{"email": in.Email}
	if err := check(in, values); err != nil {
		return nil, err
	}

	externalID, err := s.Identity.SignUpWithPassword(ctx, in.Email, in.Password)
	if errors.Is(err, identitydomain.ErrIdentityConflict) {
		return nil, accountExists(values)
	}
	if err != nil {
		return nil, fmt.Errorf("identity sign-up: %w", err)
	}

	hash, err := s.Hasher.Hash([]byte(in.Password))
	if err != nil {
		s.rollbackIdentity(ctx, externalID, err)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &userdomain.User{ID: externalID, Email: in.Email, PasswordHash: hash, Role: userdomain.RoleMember}
	if err := s.Users.Create(ctx, u); err != nil {
		s.rollbackIdentity(ctx, externalID, err)
		if errors.Is(err, userdomain.ErrEmailTaken) {
			return nil, accountExists(values)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	teamID := ""
	if in.InviteID != "" {
		teamID = s.redeemInvitation(ctx, meta, u, in.InviteID)
	}
	s.recordBestEffort(ctx, meta, teamID, u.ID, activitydomain.ActionSignUp, "")

	tok, err := s.Sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &domain.Result{Redirect: "/dashboard", Session: &tok}, nil
}

// redeemInvitation joins u to the invitation's team when the invitation is
// pending and addressed to u's email. Returns the joined team id, or "" when
// the invitation was ignored. An invitation addressed to another email is
// ignored on purpose: the account is created teamless and the invitation stays
// pending for its addressee. Failures are logged; sign-up proceeds teamless.
func (s *Service) redeemInvitation(ctx context.Context, meta domain.RequestMeta, u *userdomain.User, inviteID string) string {
	inv, err := s.Invitations.GetByID(ctx, inviteID)
	if err != nil {
		slog.Warn("auth: invitation lookup failed", "invitation_id", inviteID, "error", err)
		return ""
	}
	if !inv.RedeemableBy(u.Email) {
		return ""
	}
	claimed, err := s.Invitations.MarkAccepted(ctx, inv.ID, s.now().UTC())
	if err != nil || !claimed {
		if err != nil {
			slog.Warn("auth: invitation accept failed", "invitation_id", inv.ID, "error", err)
		}
		return ""
	}
	m := &membershipdomain.Membership{
		ID:       uuid.New().String(),
		UserID:   u.ID,
		TeamID:   inv.TeamID,
		Role:     inv.Role,
		JoinedAt: s.now().UTC(),
	}
	if err := s.Memberships.Create(ctx, m); err != nil && !errors.Is(err, membershipdomain.ErrAlreadyMember) {
		slog.Error("auth: invitation accepted but membership not created", "invitation_id", inv.ID, "user_id", u.ID, "error", err)
		s.Reporter.Report(ctx, err, map[string]string{"operation": opSignUp, "invitation_id": inv.ID})
		return ""
	}
	s.recordBestEffort(ctx, meta, inv.TeamID, u.ID, activitydomain.ActionAcceptInvitation, inv.ID)
	return inv.TeamID
}

// rollbackIdentity deletes the provider account created for a failed sign-up.
func (s *Service) rollbackIdentity(ctx context.Context, externalID string, cause error) {
	s.deleteIdentity(ctx, externalID, "identity_rollback", cause)
}

// deleteIdentity removes the provider account for externalID. It runs on a
// fresh deadline so an expired request does not skip it. Failures are logged
// and reported; the provider account is then orphaned.
func (s *Service) deleteIdentity(ctx context.Context, externalID, op string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := s.Identity.DeleteIdentity(ctx, externalID); err != nil {
		slog.Error("auth: identity delete failed; orphaned provider account",
			"operation", op, "external_id", externalID, "cause", cause, "error", err)
		s.Reporter.Report(ctx, err, map[string]string{"operation": op, "external_id": externalID})
	}
}
