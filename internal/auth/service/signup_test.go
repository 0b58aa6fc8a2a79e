package service

import (
	"context"
	"testing"

	activitydomain "saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/auth/domain"
	invitationdomain "saasgate/backend/internal/invitation/domain"
	membershipdomain "saasgate/backend/internal/membership/domain"
	"saasgate/backend/internal/platform/apperr"
	userdomain "saasgate/backend/internal/user/domain"
)

func TestSignUp(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: " new@example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if res.Redirect != "/dashboard" || res.Session == nil {
		t.Fatalf("result = %+v", res)
	}
	claims, err := h.sessions.Resolve(context.Background(), res.Session.Value)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	u, _ := h.users.GetByID(context.Background(), claims.UserID)
	if u == nil || u.Email != "new@example.com" {
		t.Fatalf("user = %+v", u)
	}
	if err := testHasher.Compare(u.PasswordHash, []byte("correct-horse")); err != nil {
		t.Errorf("stored hash does not match: %v", err)
	}
}

func TestSignUp_DuplicateIsAccountExists(t *testing.T) {
	h := newHarness(t)
	in := SignUpInput{Email: "new@example.com", Password: "correct-horse"}
	if _, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, in); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	_, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, in)
	ae := wantKind(t, err, apperr.KindAccountExists)
	if ae.Values["email"] != "new@example.com" {
		t.Errorf("values = %v", ae.Values)
	}
}

func TestSignUp_LocalConflictRollsBackIdentity(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, "new@example.com", "correct-horse")

	_, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: "new@example.com", Password: "correct-horse"})
	wantKind(t, err, apperr.KindAccountExists)
	if len(h.identity.deleted) != 1 {
		t.Fatalf("deleted identities = %v, want one rollback", h.identity.deleted)
	}
}

func TestSignUp_InsertFailureRollsBackIdentity(t *testing.T) {
	h := newHarness(t)
	h.users.createErr = errStore

	_, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: "new@example.com", Password: "correct-horse"})
	wantKind(t, err, apperr.KindUpstream)
	if len(h.identity.deleted) != 1 {
		t.Fatalf("deleted identities = %v, want one rollback", h.identity.deleted)
	}
}

func TestSignUp_ProviderFailureIsUpstream(t *testing.T) {
	h := newHarness(t)
	h.identity.signUpErr = errStore

	_, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: "new@example.com", Password: "correct-horse"})
	wantKind(t, err, apperr.KindUpstream)
	if len(h.identity.deleted) != 0 {
		t.Errorf("nothing to roll back, deleted = %v", h.identity.deleted)
	}
}

func TestSignUp_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"bad email", SignUpInput{Email: "not-an-email", Password: "correct-horse"}, "email"},
		{"short password", SignUpInput{Email: "new@example.com", Password: "short"}, "password"},
		{"empty", SignUpInput{}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, tt.in)
			ae := wantKind(t, err, apperr.KindValidation)
			if ae.Fields[tt.field] == "" {
				t.Errorf("fields = %v, want %q", ae.Fields, tt.field)
			}
		})
	}
}

func TestSignUp_RedeemsInvitation(t *testing.T) {
	h := newHarness(t)
	owner := h.addUser(t, "owner@example.com", "correct-horse")
	h.join(t, owner.ID, "team-1", membershipdomain.RoleOwner)

	if _, err := h.svc.InviteTeamMember(context.Background(), h.signedIn(t, owner.ID), InviteInput{Email: "new@example.com", Role: "member"}); err != nil {
		t.Fatalf("InviteTeamMember: %v", err)
	}
	inv, _ := h.invitations.GetPending(context.Background(), "team-1", "new@example.com")
	if inv == nil {
		t.Fatal("invitation not created")
	}

	res, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: "new@example.com", Password: "correct-horse", InviteID: inv.ID})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	claims, _ := h.sessions.Resolve(context.Background(), res.Session.Value)
	m, _ := h.memberships.GetForUser(context.Background(), claims.UserID)
	if m == nil || m.TeamID != "team-1" || m.Role != membershipdomain.RoleMember {
		t.Fatalf("membership = %+v", m)
	}
	got, _ := h.invitations.GetByID(context.Background(), inv.ID)
	if got.Status != invitationdomain.StatusAccepted || got.AcceptedAt == nil {
		t.Errorf("invitation = %+v, want accepted", got)
	}
	for _, action := range []activitydomain.ActionType{activitydomain.ActionSignUp, activitydomain.ActionAcceptInvitation} {
		if e := h.activity.has(action); e == nil || e.TeamID != "team-1" {
			t.Errorf("%s entry = %+v", action, e)
		}
	}
}

func TestSignUp_IgnoresUnusableInvitation(t *testing.T) {
	h := newHarness(t)
	h.invitations.byID["inv-other"] = &invitationdomain.Invitation{
		ID: "inv-other", TeamID: "team-1", Email: "someone@example.com", Role: membershipdomain.RoleMember, Status: invitationdomain.StatusPending,
	}
	h.invitations.byID["inv-used"] = &invitationdomain.Invitation{
		ID: "inv-used", TeamID: "team-1", Email: "new@example.com", Role: membershipdomain.RoleMember, Status: invitationdomain.StatusAccepted,
	}
	for _, id := range []string{"inv-other", "inv-used", "inv-missing"} {
		t.Run(id, func(t *testing.T) {
			h.identity.taken = map[string]bool{}
			h.users.byID = map[string]*userdomain.User{}
			res, err := h.svc.SignUp(context.Background(), domain.RequestMeta{}, SignUpInput{Email: "new@example.com", Password: "correct-horse", InviteID: id})
			if err != nil {
				t.Fatalf("SignUp: %v", err)
			}
			if res.Session == nil {
				t.Fatal("expected a session")
			}
			if n := h.memberships.count(); n != 0 {
				t.Errorf("memberships = %d, want 0", n)
			}
		})
	}
	if got, _ := h.invitations.GetByID(context.Background(), "inv-other"); got.Status != invitationdomain.StatusPending {
		t.Errorf("invitation for another email was consumed")
	}
}
