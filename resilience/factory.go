package resilience

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/onwatch/sentinel/pkg/logger"
)

// Dependencies holds the optional collaborators a CircuitBreaker or retry
// executor can be wired with, following the teacher's dependency-injection
// factory convention.
type Dependencies struct {
	Logger logger.Logger
	Meter  metric.Meter
}

// NewCircuitBreakerFor builds a named circuit breaker with a logger and,
// if a Meter is supplied, OpenTelemetry-backed metrics.
func NewCircuitBreakerFor(name string, deps Dependencies) (*CircuitBreaker, error) {
	config := DefaultConfig()
	config.Name = name

	if deps.Logger != nil {
		config.Logger = deps.Logger.WithField("component", "resilience.circuit_breaker")
	}

	if deps.Meter != nil {
		if m, err := NewTelemetryMetrics(deps.Meter); err == nil {
			config.Metrics = m
		}
	}

	return NewCircuitBreaker(config)
}
