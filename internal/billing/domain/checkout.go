package domain

import (
	"errors"

	teamdomain "saasgate/backend/internal/team/domain"
)

var (
	// ErrIncompleteCheckout means the provider's session lacks a customer, subscription, plan or user reference.
	ErrIncompleteCheckout = errors.New("checkout session is incomplete")
	// ErrNoTeam means the purchasing user belongs to no team.
	ErrNoTeam = errors.New("user is not associated with any team")
)

// CheckoutResult is what a completed checkout tells us about the purchaser.
type CheckoutResult struct {
	// UserID is the client reference set when the session was created.
	UserID       string
	Subscription teamdomain.Subscription
}
