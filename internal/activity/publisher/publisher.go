// Package publisher fans activity entries out to a message broker for downstream consumers.
package publisher

import (
	"context"

	"saasgate/backend/internal/activity/domain"
)

// Publisher emits activity entries. Callers use it best-effort: log and ignore errors.
type Publisher interface {
	// Publish sends a single entry. Implementations may block briefly; call from a goroutine if needed.
	Publish(ctx context.Context, e *domain.Entry) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
