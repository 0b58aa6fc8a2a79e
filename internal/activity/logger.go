// Package activity records the append-only audit trail of security-relevant actions.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"saasgate/backend/internal/activity/domain"
	"saasgate/backend/internal/activity/publisher"
	activityrepo "saasgate/backend/internal/activity/repository"
)

// publishTimeout bounds a single asynchronous publish. Also used by ShutdownDrainDuration.
const publishTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait before closing the publisher so
// in-flight async publishes can finish.
const ShutdownDrainDuration = publishTimeout

// Event is what callers hand to the recorder.
type Event struct {
	TeamID    string
	UserID    string
	Action    domain.ActionType
	IPAddress string
	Metadata  string
}

// Recorder writes one activity entry.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Logger implements Recorder using the activity repository and an optional publisher.
type Logger struct {
	repo      activityrepo.Repository
	publisher publisher.Publisher
	now       func() time.Time
}

// NewLogger returns a Logger persisting to repo. pub may be nil.
func NewLogger(repo activityrepo.Repository, pub publisher.Publisher) *Logger {
	return &Logger{repo: repo, publisher: pub, now: time.Now}
}

// Record persists one entry. Events without a team are dropped and return nil.
// After a successful write the entry is published asynchronously.
func (l *Logger) Record(ctx context.Context, ev Event) error {
	if l == nil || l.repo == nil || ev.TeamID == "" {
		return nil
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		TeamID:    ev.TeamID,
		UserID:    ev.UserID,
		Action:    ev.Action,
		IPAddress: ev.IPAddress,
		Metadata:  ev.Metadata,
		Timestamp: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		return err
	}
	PublishAsync(l.publisher, entry)
	return nil
}

// PublishAsync runs Publish in a goroutine on a fresh context so request
// cancellation does not abort it. pub and e may be nil.
func PublishAsync(pub publisher.Publisher, e *domain.Entry) {
	if pub == nil || e == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.Publish(ctx, e); err != nil {
			slog.Warn("activity: async publish failed", "action", e.Action, "team_id", e.TeamID, "error", err)
		}
	}()
}
