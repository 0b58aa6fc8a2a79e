// Package repository stores revoked session token ids until the tokens would have expired anyway.
package repository

import (
	"context"
	"time"
)

// Denylist records revoked token ids. Entries live no longer than the token they revoke.
type Denylist interface {
	// Revoke denylists jti until expiresAt. A token already past expiry is a no-op.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
