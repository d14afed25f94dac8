package incident

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/store/memstore"
)

func testPolicy() *domain.EscalationPolicy {
	return &domain.EscalationPolicy{ID: "pol-1", TeamID: "team-a", Name: "default"}
}

func TestIngestCreatesIncidentOnFirstAlert(t *testing.T) {
	svc := New(memstore.New(), nil)
	alert := &domain.Alert{Title: "disk full", Severity: domain.SeverityHigh, TriggeredAt: time.Now()}

	inc, isNew, err := svc.Ingest(context.Background(), alert, "fp-1", testPolicy(), time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, inc.AlertCount)
	assert.Equal(t, domain.IncidentOpen, inc.Status)
	assert.Equal(t, "P2", inc.Priority)
}

func TestIngestGroupsSecondAlertIntoSameIncident(t *testing.T) {
	svc := New(memstore.New(), nil)
	policy := testPolicy()

	first, isNew1, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew1)

	second, isNew2, err := svc.Ingest(context.Background(), &domain.Alert{Title: "b", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew2)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.AlertCount)
}

func TestIngestDoesNotGroupOutsideWindow(t *testing.T) {
	svc := New(memstore.New(), nil)
	policy := testPolicy()

	first, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, -time.Second)
	require.NoError(t, err)

	second, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "b", TriggeredAt: time.Now()}, "fp-1", policy, -time.Second)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestAcknowledgeRejectsResolvedIncident(t *testing.T) {
	svc := New(memstore.New(), nil)
	policy := testPolicy()
	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), inc.ID)
	require.NoError(t, err)

	_, err = svc.Acknowledge(context.Background(), inc.ID, "user-1")
	assert.Error(t, err)
}

func TestAcknowledgeCancelsQueuedEscalationJobs(t *testing.T) {
	q := queue.NewMemQueue()
	scheduler := escalation.NewScheduler(q)
	svc := New(memstore.New(), scheduler)
	policy := testPolicy()
	policy.Levels = []domain.EscalationLevel{{Number: 1, TimeoutMin: -1}}

	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)
	require.NoError(t, scheduler.ScheduleFirst(context.Background(), inc.ID, policy))

	_, err = svc.Acknowledge(context.Background(), inc.ID, "user-1")
	require.NoError(t, err)

	jobs, err := q.Due(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestResolveCancelsQueuedEscalationJobs(t *testing.T) {
	q := queue.NewMemQueue()
	scheduler := escalation.NewScheduler(q)
	svc := New(memstore.New(), scheduler)
	policy := testPolicy()
	policy.Levels = []domain.EscalationLevel{{Number: 1, TimeoutMin: -1}}

	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)
	require.NoError(t, scheduler.ScheduleFirst(context.Background(), inc.ID, policy))

	_, err = svc.Resolve(context.Background(), inc.ID)
	require.NoError(t, err)

	jobs, err := q.Due(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestResolveSetsResolvedAt(t *testing.T) {
	svc := New(memstore.New(), nil)
	policy := testPolicy()
	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
}
