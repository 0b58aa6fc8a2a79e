package repository

import (
	"context"

	"saasgate/backend/internal/team/domain"
)

// Repository defines persistence for teams.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Team, error)
	Create(ctx context.Context, t *domain.Team) error
	// UpdateSubscription stores the billing state for the team.
	UpdateSubscription(ctx context.Context, teamID string, sub domain.Subscription) error
}
