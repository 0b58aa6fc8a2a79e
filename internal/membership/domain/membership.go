package domain

import (
	"errors"
	"time"
)

// ErrAlreadyMember is returned when the user already belongs to the team.
var ErrAlreadyMember = errors.New("user is already a member of this team")

// Membership links a user to a team with a role.
type Membership struct {
	ID       string
	UserID   string
	TeamID   string
	Role     Role
	JoinedAt time.Time
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// ParseRole returns the Role for s, or false if s is not a team role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleMember:
		return Role(s), true
	}
	return "", false
}

// IsOwner reports whether the membership grants the owner role.
func (m *Membership) IsOwner() bool {
	return m != nil && m.Role == RoleOwner
}
