package domain

import (
	"errors"
	"time"
)

// Team is the billing and collaboration unit. Billing fields stay empty until
// the first completed checkout.
type Team struct {
	ID                   string
	Name                 string
	StripeCustomerID     string
	StripeSubscriptionID string
	StripeProductID      string
	PlanName             string
	SubscriptionStatus   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Subscription is the billing state written back after checkout.
type Subscription struct {
	CustomerID     string
	SubscriptionID string
	ProductID      string
	PlanName       string
	Status         string
}

// Validate validates the team for persistence. Returns an error describing the first validation failure.
func (t *Team) Validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if len(t.Name) > 100 {
		return errors.New("name must be at most 100 characters")
	}
	return nil
}
