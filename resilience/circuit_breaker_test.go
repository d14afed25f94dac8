package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) *CircuitBreakerConfig {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.VolumeThreshold = 2
	cfg.ErrorThreshold = 0.5
	cfg.SleepWindow = 20 * time.Millisecond
	cfg.HalfOpenRequests = 1
	cfg.SuccessThreshold = 1.0
	return cfg
}

func TestCircuitBreakerOpensOnErrorThreshold(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("opens"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	}

	assert.Equal(t, "open", cb.GetState())
}

func TestCircuitBreakerRejectsWhileOpen(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("rejects"))
	require.NoError(t, err)
	cb.ForceOpen()

	err = cb.Execute(context.Background(), func() error { return nil })
	require.Error(t, err)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cfg := testConfig("recovers")
	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("boom") })
	}
	require.Equal(t, "open", cb.GetState())

	time.Sleep(cfg.SleepWindow * 2)

	err = cb.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerDoesNotCountConfigurationErrors(t *testing.T) {
	cfg := testConfig("config-errors")
	cfg.ErrorClassifier = func(err error) bool { return false }
	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_ = cb.Execute(context.Background(), func() error { return errors.New("validation error") })
	}

	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerTimeout(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("timeout"))
	require.NoError(t, err)

	err = cb.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
