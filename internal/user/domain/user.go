package domain

import (
	"errors"
	"time"
)

var (
	// ErrEmailTaken is returned when another active user already has the email.
	ErrEmailTaken = errors.New("email already in use")
	// ErrAccountDeleted is returned when an operation targets a soft-deleted user.
	ErrAccountDeleted = errors.New("account deleted")
)

// User is the core user entity. PasswordHash is empty for accounts that only
// sign in through a federated identity provider.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Role is the account-level role. Team roles live on memberships.
type Role string

const (
	RoleMember Role = "member"
	RoleOwner  Role = "owner"
)

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsActive reports whether the user has not been soft-deleted.
func (u *User) IsActive() bool {
	return u.DeletedAt == nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Role != RoleMember && u.Role != RoleOwner {
		return errors.New("role must be member or owner")
	}
	return nil
}
