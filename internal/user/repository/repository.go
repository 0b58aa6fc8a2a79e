package repository

import (
	"context"
	"time"

	"saasgate/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups only return active users
// and return (nil, nil) when none match.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts u. Returns domain.ErrEmailTaken when an active user has the email.
	Create(ctx context.Context, u *domain.User) error
	// Update writes name and email. Returns domain.ErrEmailTaken on conflict.
	Update(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// SoftDelete marks the user deleted at the given time; the email becomes reusable.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// UpsertFederated returns the active user with u.ID, creating it when absent.
	// Returns domain.ErrAccountDeleted when the id belongs to a deleted user.
	UpsertFederated(ctx context.Context, u *domain.User) (*domain.User, error)
}
