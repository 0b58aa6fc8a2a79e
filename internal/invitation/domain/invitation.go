package domain

import (
	"errors"
	"time"

	memberdomain "saasgate/backend/internal/membership/domain"
)

// ErrDuplicatePending is returned when a pending invitation already exists for (team, email).
var ErrDuplicatePending = errors.New("a pending invitation already exists for this email")

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Invitation is a standing offer for an email address to join a team at a role.
type Invitation struct {
	ID         string
	TeamID     string
	Email      string
	Role       memberdomain.Role
	InvitedBy  string
	Status     Status
	InvitedAt  time.Time
	AcceptedAt *time.Time
}

// RedeemableBy reports whether the invitation can be redeemed by a new account
// registering with email.
func (i *Invitation) RedeemableBy(email string) bool {
	return i != nil && i.Status == StatusPending && i.Email == email
}
