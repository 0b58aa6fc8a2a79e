package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	invitationdomain "saasgate/backend/internal/invitation/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
	"saasgate/backend/internal/platform/rbac"
	"saasgate/backend/internal/policy/engine"
)

func alreadyMember(values map[string]string) *apperr.Error {
	return apperr.New(apperr.KindAlreadyMember, "User is already a member of this team.").WithValues(values)
}

func duplicateInvitation(values map[string]string) *apperr.Error {
	return apperr.New(apperr.KindDuplicateInvitation, "An invitation has already been sent to this email.").WithValues(values)
}

func memberOfAnotherTeam(values map[string]string) *apperr.Error {
	return apperr.New(apperr.KindMemberOfAnotherTeam, "User already belongs to another team.").WithValues(values)
}

// InviteTeamMember invites email to the caller's team. An existing account
// joins directly; otherwise a pending invitation is created. An account
// belongs to at most one team, so one already in another team is refused.
func (s *Service) InviteTeamMember(ctx context.Context, meta domain.RequestMeta, in InviteInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "invite_team_member")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(in.Email)
	values := map[string]string{"email": in.Email, "role": in.Role}
	if err := check(in, values); err != nil {
		return nil, err
	}
	role, _ := membershipdomain.ParseRole(in.Role)

	actor, err := rbac.RequireTeamAction(ctx, s.Memberships, s.Authorizer, u.ID, engine.ActionInviteMember)
	if err != nil {
		return nil, err
	}

	member, err := s.Memberships.IsMemberByEmail(ctx, actor.TeamID, in.Email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, alreadyMember(values)
	}
	pending, err := s.Invitations.GetPending(ctx, actor.TeamID, in.Email)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, duplicateInvitation(values)
	}

	existing, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		other, err := s.Memberships.GetForUser(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, memberOfAnotherTeam(values)
		}
		err = s.Memberships.Create(ctx, &membershipdomain.Membership{
			ID:       uuid.New().String(),
			UserID:   existing.ID,
			TeamID:   actor.TeamID,
			Role:     role,
			JoinedAt: s.now().UTC(),
		})
		if errors.Is(err, membershipdomain.ErrAlreadyMember) {
			return nil, alreadyMember(values)
		}
		if err != nil {
			return nil, fmt.Errorf("add member: %w", err)
		}
	} else {
		err := s.Invitations.Create(ctx, &invitationdomain.Invitation{
			ID:        uuid.New().String(),
			TeamID:    actor.TeamID,
			Email:     in.Email,
			Role:      role,
			InvitedBy: u.ID,
			Status:    invitationdomain.StatusPending,
			InvitedAt: s.now().UTC(),
		})
		if errors.Is(err, invitationdomain.ErrDuplicatePending) {
			return nil, duplicateInvitation(values)
		}
		if err != nil {
			return nil, fmt.Errorf("create invitation: %w", err)
		}
	}

	s.recordBestEffort(ctx, meta, actor.TeamID, u.ID, activitydomain.ActionInviteTeamMember, in.Email)
	return &domain.Result{Message: "Invitation sent successfully."}, nil
}

// RemoveTeamMember removes a membership from the caller's team. Callers cannot
// remove themselves, and the last owner cannot be removed.
func (s *Service) RemoveTeamMember(ctx context.Context, meta domain.RequestMeta, in RemoveMemberInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "remove_team_member")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	in.MemberID = strings.TrimSpace(in.MemberID)
	if err := check(in, map[string]string{"memberId": in.MemberID}); err != nil {
		return nil, err
	}

	actor, err := rbac.RequireTeamMember(ctx, s.Memberships, u.ID)
	if err != nil {
		return nil, err
	}
	if in.MemberID == actor.ID {
		return nil, apperr.New(apperr.KindCannotRemoveSelf, "You cannot remove yourself from the team.")
	}
	allowed, err := s.Authorizer.Allow(ctx, string(actor.Role), engine.ActionRemoveMember)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}
	if !allowed {
		return nil, apperr.Forbidden()
	}

	target, err := s.Memberships.GetByIDAndTeam(ctx, in.MemberID, actor.TeamID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperr.New(apperr.KindNotFound, "Team member not found.")
	}
	if target.UserID == u.ID {
		return nil, apperr.New(apperr.KindCannotRemoveSelf, "You cannot remove yourself from the team.")
	}
	if target.IsOwner() {
		if err := s.ensureNotLastOwner(ctx, actor.TeamID, false); err != nil {
			return nil, err
		}
	}
	removed, err := s.Memberships.DeleteByIDAndTeam(ctx, target.ID, actor.TeamID)
	if err != nil {
		return nil, fmt.Errorf("remove member: %w", err)
	}
	if !removed {
		return nil, apperr.New(apperr.KindNotFound, "Team member not found.")
	}

	s.recordBestEffort(ctx, meta, actor.TeamID, u.ID, activitydomain.ActionRemoveTeamMember, target.UserID)
	return &domain.Result{Message: "Team member removed successfully."}, nil
}
