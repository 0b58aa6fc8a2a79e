package otel

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, r *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation is %T, want Sum[int64]", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_SessionVerified(t *testing.T) {
	r := metric.NewManualReader()
	m, err := NewMetrics(metric.NewMeterProvider(metric.WithReader(r)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.SessionVerified(ctx, VerifyOK)
	m.SessionVerified(ctx, VerifyOK)
	m.SessionVerified(ctx, VerifyRevoked)

	data := collect(t, r)["saasgate.session.verify"]
	if data == nil {
		t.Fatal("saasgate.session.verify not collected")
	}
	if got := sumFor(t, data, "outcome", VerifyOK); got != 2 {
		t.Errorf("ok = %d, want 2", got)
	}
	if got := sumFor(t, data, "outcome", VerifyRevoked); got != 1 {
		t.Errorf("revoked = %d, want 1", got)
	}
}

func TestMetrics_OperationDone(t *testing.T) {
	r := metric.NewManualReader()
	m, err := NewMetrics(metric.NewMeterProvider(metric.WithReader(r)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.OperationDone(context.Background(), "sign_in", "invalid_credentials", 20*time.Millisecond)

	got := collect(t, r)
	if n := sumFor(t, got["saasgate.auth.operations"], "operation", "sign_in"); n != 1 {
		t.Errorf("sign_in count = %d, want 1", n)
	}
	if _, ok := got["saasgate.auth.operation.duration"].(metricdata.Histogram[float64]); !ok {
		t.Errorf("duration aggregation = %T", got["saasgate.auth.operation.duration"])
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.SessionVerified(context.Background(), VerifyOK)
	m.OperationDone(context.Background(), "x", "ok", time.Second)
}
