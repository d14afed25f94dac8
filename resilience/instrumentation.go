package resilience

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelMetrics reports circuit breaker events through the OpenTelemetry
// metric API, generalizing the teacher's telemetry.DeclareMetrics
// registration into instruments created directly against a Meter.
type otelMetrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	rejected metric.Int64Counter
	state    metric.Int64Counter
}

// NewTelemetryMetrics builds a MetricsCollector backed by the given meter.
func NewTelemetryMetrics(meter metric.Meter) (MetricsCollector, error) {
	calls, err := meter.Int64Counter("circuit_breaker.calls", metric.WithDescription("total circuit breaker calls"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("circuit_breaker.failures", metric.WithDescription("circuit breaker failures"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("circuit_breaker.rejected", metric.WithDescription("requests rejected by an open circuit"))
	if err != nil {
		return nil, err
	}
	state, err := meter.Int64Counter("circuit_breaker.state_changes", metric.WithDescription("circuit breaker state transitions"))
	if err != nil {
		return nil, err
	}
	return &otelMetrics{calls: calls, failures: failures, rejected: rejected, state: state}, nil
}

func (m *otelMetrics) RecordSuccess(name string) {
	m.calls.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", name), attribute.String("result", "success")))
}

func (m *otelMetrics) RecordFailure(name string, errorType string) {
	m.calls.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", name), attribute.String("result", "failure")))
	m.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", name), attribute.String("error_type", errorType)))
}

func (m *otelMetrics) RecordStateChange(name string, from, to string) {
	m.state.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", name), attribute.String("from", from), attribute.String("to", to)))
}

func (m *otelMetrics) RecordRejection(name string) {
	m.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", name)))
}
