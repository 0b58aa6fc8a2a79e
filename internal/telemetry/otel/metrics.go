package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "saasgate/backend"

// Session verification outcomes.
const (
	VerifyOK        = "ok"
	VerifyTampered  = "tampered"
	VerifyExpired   = "expired"
	VerifyMalformed = "malformed"
	VerifyRevoked   = "revoked"
)

// Metrics holds the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	sessionVerify otelmetric.Int64Counter
	operations    otelmetric.Int64Counter
	opDuration    otelmetric.Float64Histogram
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp otelmetric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	verify, err := meter.Int64Counter("saasgate.session.verify",
		otelmetric.WithDescription("Session token verifications by outcome."))
	if err != nil {
		return nil, err
	}
	ops, err := meter.Int64Counter("saasgate.auth.operations",
		otelmetric.WithDescription("Auth operations by name and outcome."))
	if err != nil {
		return nil, err
	}
	dur, err := meter.Float64Histogram("saasgate.auth.operation.duration",
		otelmetric.WithDescription("Auth operation latency."),
		otelmetric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Metrics{sessionVerify: verify, operations: ops, opDuration: dur}, nil
}

// SessionVerified counts one verification with the given outcome.
func (m *Metrics) SessionVerified(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.sessionVerify.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// OperationDone counts one finished operation and records its latency.
// outcome is "ok" or a failure kind.
func (m *Metrics) OperationDone(ctx context.Context, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome))
	m.operations.Add(ctx, 1, attrs)
	m.opDuration.Record(ctx, d.Seconds(), attrs)
}
