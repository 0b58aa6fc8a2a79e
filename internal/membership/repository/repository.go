package repository

import (
	"context"

	"saasgate/backend/internal/membership/domain"
)

// Repository defines persistence for team memberships. Getters return (nil, nil) when not found.
type Repository interface {
	// GetForUser returns the user's earliest membership. Invitations keep an account in one team.
	GetForUser(ctx context.Context, userID string) (*domain.Membership, error)
	// ListForUser returns every membership of the user, earliest first.
	ListForUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	GetByUserAndTeam(ctx context.Context, userID, teamID string) (*domain.Membership, error)
	GetByIDAndTeam(ctx context.Context, id, teamID string) (*domain.Membership, error)
	// IsMemberByEmail reports whether an active user with email belongs to teamID.
	IsMemberByEmail(ctx context.Context, teamID, email string) (bool, error)
	// Create inserts m. Returns domain.ErrAlreadyMember on a duplicate (user, team).
	Create(ctx context.Context, m *domain.Membership) error
	// DeleteByIDAndTeam removes the membership only when it belongs to teamID.
	DeleteByIDAndTeam(ctx context.Context, id, teamID string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
	CountOwnersByTeam(ctx context.Context, teamID string) (int64, error)
	CountByTeam(ctx context.Context, teamID string) (int64, error)
}
