// Package errreport sends unexpected failures to an error tracker.
package errreport

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter records an unexpected error with tags. Implementations never block the caller for long.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Noop discards everything.
type Noop struct{}

func (Noop) Report(context.Context, error, map[string]string) {}
func (Noop) Flush(time.Duration) bool                         { return true }

// Sentry reports to sentry through its own hub.
type Sentry struct {
	hub *sentry.Hub
}

// New returns a Sentry reporter for dsn, or Noop when dsn is empty.
func New(dsn, environment string) (Reporter, error) {
	if dsn == "" {
		return Noop{}, nil
	}
	return NewSentry(sentry.ClientOptions{Dsn: dsn, Environment: environment})
}

// NewSentry builds a reporter from explicit client options.
func NewSentry(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report captures err. Tags are set on a scope local to this event.
func (s *Sentry) Report(_ context.Context, err error, tags map[string]string) {
	if s == nil || err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events.
func (s *Sentry) Flush(timeout time.Duration) bool {
	if s == nil {
		return true
	}
	return s.hub.Flush(timeout)
}
