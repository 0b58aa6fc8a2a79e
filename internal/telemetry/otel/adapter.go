package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"saasgate/backend/internal/activity/domain"
)

// ActivityPublisher emits activity entries as OTel log records. It satisfies the activity publisher interface.
type ActivityPublisher struct {
	logger recordEmitter
}

// recordEmitter is the subset of otellog.Logger used here.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewActivityPublisher returns a publisher over provider. If provider is nil, returns nil.
func NewActivityPublisher(provider *sdklog.LoggerProvider) *ActivityPublisher {
	if provider == nil {
		return nil
	}
	return NewActivityPublisherWithLogger(provider.Logger("saasgate.activity"))
}

// NewActivityPublisherWithLogger wraps anything that emits records, such as an otel logger.
func NewActivityPublisherWithLogger(l recordEmitter) *ActivityPublisher {
	return &ActivityPublisher{logger: l}
}

// Publish converts the entry to a log record and emits it. Never returns an error.
func (p *ActivityPublisher) Publish(ctx context.Context, e *domain.Entry) error {
	if p == nil || e == nil {
		return nil
	}
	var rec otellog.Record
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	if e.Metadata != "" {
		rec.SetBody(otellog.StringValue(e.Metadata))
	}
	rec.AddAttributes(
		otellog.String("activity.id", e.ID),
		otellog.String("team_id", e.TeamID),
		otellog.String("action", string(e.Action)),
	)
	if e.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", e.UserID))
	}
	if e.IPAddress != "" {
		rec.AddAttributes(otellog.String("client.address", e.IPAddress))
	}
	p.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the provider is shut down by its owner.
func (p *ActivityPublisher) Close() error { return nil }
