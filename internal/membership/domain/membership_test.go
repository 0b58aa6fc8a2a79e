package domain

import "testing"

func TestParseRole(t *testing.T) {
	for in, want := range map[string]bool{"owner": true, "member": true, "admin": false, "": false, "Owner": false} {
		if _, ok := ParseRole(in); ok != want {
			t.Errorf("ParseRole(%q) ok=%v want %v", in, ok, want)
		}
	}
}

func TestMembership_IsOwner(t *testing.T) {
	var nilM *Membership
	if nilM.IsOwner() {
		t.Error("nil membership is not an owner")
	}
	if !(&Membership{Role: RoleOwner}).IsOwner() {
		t.Error("owner role should report IsOwner")
	}
	if (&Membership{Role: RoleMember}).IsOwner() {
		t.Error("member role should not report IsOwner")
	}
}
