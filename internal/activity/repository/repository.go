package repository

import (
	"context"

	"saasgate/backend/internal/activity/domain"
)

// Repository defines persistence for activity entries. Entries are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	ListByTeam(ctx context.Context, teamID string, limit int) ([]*domain.Entry, error)
}
