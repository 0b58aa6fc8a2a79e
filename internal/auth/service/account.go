package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/platform/apperr"
	userdomain "saasgate/backend/internal/user/domain"
)

// UpdateAccount changes the caller's name and email.
func (s *Service) UpdateAccount(ctx context.Context, meta domain.RequestMeta, in UpdateAccountInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "update_account")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(in.Email)
	values := map[string]string{"name": in.Name, "email": in.Email}
	if err := check(in, values); err != nil {
		return nil, err
	}

	updated := *u
	updated.Name = in.Name
	updated.Email = in.Email
	if err := s.Users.Update(ctx, &updated); err != nil {
		if errors.Is(err, userdomain.ErrEmailTaken) {
			return nil, apperr.New(apperr.KindAccountExists, "Email is already in use.").WithValues(values)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	m, err := s.Memberships.GetForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	teamID := ""
	if m != nil {
		teamID = m.TeamID
	}
	s.recordBestEffort(ctx, meta, teamID, u.ID, activitydomain.ActionUpdateAccount, "")
	return &domain.Result{Message: "Account updated successfully.", User: toView(&updated, m)}, nil
}

// UpdatePassword replaces the caller's password. A new password equal to the
// current one is rejected before any other check.
func (s *Service) UpdatePassword(ctx context.Context, meta domain.RequestMeta, in UpdatePasswordInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "update_password")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	if in.NewPassword == in.CurrentPassword {
		return nil, &apperr.Error{
			Kind:    apperr.KindSamePassword,
			Message: "New password must be different from the current password.",
			Fields:  map[string]string{"newPassword": "Must differ from the current password."},
		}
	}
	if err := check(in, nil); err != nil {
		return nil, err
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, &apperr.Error{
			Kind:    apperr.KindConfirmationMismatch,
			Message: "Passwords don't match.",
			Fields:  map[string]string{"confirmPassword": "Passwords don't match."},
		}
	}
	if !u.HasPassword() {
		return nil, apperr.New(apperr.KindOAuthOnlyAccount, "Password cannot be changed for OAuth users.")
	}
	if err := s.Hasher.Compare(u.PasswordHash, []byte(in.CurrentPassword)); err != nil {
		return nil, &apperr.Error{
			Kind:    apperr.KindInvalidCredentials,
			Message: "Invalid current password.",
			Fields:  map[string]string{"currentPassword": "Invalid current password."},
		}
	}

	hash, err := s.Hasher.Hash([]byte(in.NewPassword))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	s.recordBestEffort(ctx, meta, s.teamOf(ctx, u.ID), u.ID, activitydomain.ActionUpdatePassword, "")
	return &domain.Result{Message: "Password updated successfully."}, nil
}

// DeleteAccount soft-deletes the caller after confirming the password, drops
// their memberships, deletes the provider account and ends the session. The
// sole owner of any team that still has other members must hand over
// ownership first.
func (s *Service) DeleteAccount(ctx context.Context, meta domain.RequestMeta, in DeleteAccountInput) (res *domain.Result, err error) {
	ctx, done := s.begin(ctx, "delete_account")
	defer done(&err)

	u, err := s.authenticate(ctx, meta)
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return nil, apperr.New(apperr.KindOAuthOnlyAccount, "Account cannot be deleted for OAuth users.")
	}
	if err := check(in, nil); err != nil {
		return nil, err
	}
	if err := s.Hasher.Compare(u.PasswordHash, []byte(in.Password)); err != nil {
		return nil, &apperr.Error{
			Kind:    apperr.KindInvalidCredentials,
			Message: "Invalid password.",
			Fields:  map[string]string{"password": "Invalid password."},
		}
	}

	ms, err := s.Memberships.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	teamID := ""
	for _, m := range ms {
		if teamID == "" {
			teamID = m.TeamID
		}
		if !m.IsOwner() {
			continue
		}
		if err := s.ensureNotLastOwner(ctx, m.TeamID, true); err != nil {
			return nil, err
		}
	}

	s.recordBestEffort(ctx, meta, teamID, u.ID, activitydomain.ActionDeleteAccount, "")
	if err := s.Users.SoftDelete(ctx, u.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("soft delete user: %w", err)
	}
	if err := s.Memberships.DeleteByUser(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("delete memberships: %w", err)
	}
	// Frees the email at the provider so it can be registered again.
	s.deleteIdentity(ctx, u.ID, "delete_account", nil)
	s.revoke(ctx, meta.SessionToken)
	return &domain.Result{Redirect: "/sign-in", ClearSession: true}, nil
}

// ensureNotLastOwner fails with LastOwner when removing one owner would leave
// teamID without any. When leaving is true the team may be abandoned entirely
// if nobody else is in it.
func (s *Service) ensureNotLastOwner(ctx context.Context, teamID string, leaving bool) error {
	owners, err := s.Memberships.CountOwnersByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if owners > 1 {
		return nil
	}
	if leaving {
		total, err := s.Memberships.CountByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if total <= 1 {
			return nil
		}
	}
	return apperr.New(apperr.KindLastOwner, "The team must keep at least one owner.")
}
