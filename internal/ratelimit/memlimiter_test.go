package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLimiterAllowsWithinCapacity(t *testing.T) {
	l := NewMemLimiter(2, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemLimiterRejectsOverCapacity(t *testing.T) {
	l := NewMemLimiter(1, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, retryAfter, err := l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, 0)
}

func TestMemLimiterIsolatesKeys(t *testing.T) {
	l := NewMemLimiter(1, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = l.Allow(ctx, "integ-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemLimiterResetsAfterWindow(t *testing.T) {
	l := NewMemLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, _, err = l.Allow(ctx, "integ-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
