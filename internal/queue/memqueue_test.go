package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemQueueDueReturnsOnlyPastJobs(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()

	require.NoError(t, q.Schedule(ctx, Job{ID: "past", DueAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, q.Schedule(ctx, Job{ID: "future", DueAt: time.Now().Add(time.Hour)}))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "past", due[0].ID)
}

func TestMemQueueDueIsAtMostOnce(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	require.NoError(t, q.Schedule(ctx, Job{ID: "a", DueAt: time.Now().Add(-time.Second)}))

	first, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Due(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestMemQueueDueOrdersByDueTime(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, q.Schedule(ctx, Job{ID: "later", DueAt: now.Add(-time.Second)}))
	require.NoError(t, q.Schedule(ctx, Job{ID: "earlier", DueAt: now.Add(-time.Minute)}))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "earlier", due[0].ID)
	assert.Equal(t, "later", due[1].ID)
}

func TestMemQueueCancelRemovesJob(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	require.NoError(t, q.Schedule(ctx, Job{ID: "x", DueAt: time.Now().Add(-time.Second)}))
	require.NoError(t, q.Cancel(ctx, "x"))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestMemQueueCancelPrefixRemovesAllMatching(t *testing.T) {
	q := NewMemQueue()
	ctx := context.Background()
	past := time.Now().Add(-time.Second)
	require.NoError(t, q.Schedule(ctx, Job{ID: "escalation:inc-1:1:0", DueAt: past}))
	require.NoError(t, q.Schedule(ctx, Job{ID: "escalation:inc-1:2:0", DueAt: past}))
	require.NoError(t, q.Schedule(ctx, Job{ID: "escalation:inc-2:1:0", DueAt: past}))

	require.NoError(t, q.CancelPrefix(ctx, "escalation:inc-1:"))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "escalation:inc-2:1:0", due[0].ID)
}
