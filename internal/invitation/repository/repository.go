package repository

import (
	"context"
	"time"

	"saasgate/backend/internal/invitation/domain"
)

// Repository defines persistence for invitations. Getters return (nil, nil) when not found.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	GetPending(ctx context.Context, teamID, email string) (*domain.Invitation, error)
	// Create inserts inv. Returns domain.ErrDuplicatePending when a pending one exists for (team, email).
	Create(ctx context.Context, inv *domain.Invitation) error
	// MarkAccepted moves a pending invitation to accepted. Returns false if it was not pending.
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)
}
