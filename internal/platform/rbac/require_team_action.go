package rbac

import (
	"context"

	"saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
	"saasgate/backend/internal/policy/engine"
)

// RequireTeamAction resolves the caller's membership and asks authz whether its role may perform action.
// A policy evaluation error denies with Upstream.
func RequireTeamAction(ctx context.Context, getter MembershipGetter, authz engine.Authorizer, userID string, action engine.Action) (*domain.Membership, error) {
	m, err := RequireTeamMember(ctx, getter, userID)
	if err != nil {
		return nil, err
	}
	ok, err := authz.Allow(ctx, string(m.Role), action)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	if !ok {
		return nil, apperr.Forbidden()
	}
	return m, nil
}
