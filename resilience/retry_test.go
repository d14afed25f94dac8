package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func TestRetryBasicSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func() error {
		attempts++
		return errors.New("persistent")
	})
	if !errors.Is(err, serr.ErrMaxRetriesExceeded) {
		t.Fatalf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, &RetryConfig{MaxAttempts: 10, InitialDelay: 20 * time.Millisecond, BackoffFactor: 1}, func() error {
		attempts++
		return errors.New("err")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts == 0 {
		t.Fatal("expected at least one attempt")
	}
}

func TestRetryWithCircuitBreakerIntegration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = "retry-integration"
	cfg.VolumeThreshold = 1
	cfg.ErrorThreshold = 0.5
	cb, err := NewCircuitBreaker(cfg)
	if err != nil {
		t.Fatalf("failed to create circuit breaker: %v", err)
	}

	attempts := 0
	err = RetryWithCircuitBreaker(context.Background(), &RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, BackoffFactor: 1}, cb, func() error {
		attempts++
		return errors.New("downstream down")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts == 0 {
		t.Fatal("expected at least one attempt")
	}
}
