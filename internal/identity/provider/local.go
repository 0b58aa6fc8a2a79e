package provider

import (
	"context"

	"github.com/google/uuid"

	"saasgate/backend/internal/identity/domain"
)

// Local registers accounts without an external service. Ids are random uuids.
// OAuth is unsupported.
type Local struct{}

// NewLocal returns a Local registrar.
func NewLocal() *Local { return &Local{} }

func (*Local) BeginOAuth(context.Context, string, string) (domain.Flow, error) {
	return domain.Flow{}, domain.ErrUnsupported
}

func (*Local) ExchangeCode(context.Context, string, string) (*domain.Identity, error) {
	return nil, domain.ErrUnsupported
}

// SignUpWithPassword returns a fresh id; email uniqueness is left to the user store.
func (*Local) SignUpWithPassword(context.Context, string, string) (string, error) {
	return uuid.New().String(), nil
}

// DeleteIdentity is a no-op: nothing was created outside the user store.
func (*Local) DeleteIdentity(context.Context, string) error { return nil }
