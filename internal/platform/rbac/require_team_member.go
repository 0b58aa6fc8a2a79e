// Package rbac resolves the caller's team membership and checks it against the team policy.
package rbac

import (
	"context"

	"saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
)

// MembershipGetter returns a user's team membership, or (nil, nil) when the user has no team.
type MembershipGetter interface {
	GetForUser(ctx context.Context, userID string) (*domain.Membership, error)
}

// RequireTeamMember ensures userID is set and belongs to a team (any role).
// Returns the membership on success; an *apperr.Error (Unauthenticated, Forbidden or Upstream) on failure.
func RequireTeamMember(ctx context.Context, getter MembershipGetter, userID string) (*domain.Membership, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated()
	}
	m, err := getter.GetForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if m == nil {
		return nil, apperr.New(apperr.KindForbidden, "You are not a member of a team.")
	}
	return m, nil
}
