package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/store/memstore"
	"github.com/onwatch/sentinel/pkg/logger"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []domain.EscalationTarget
}

func (f *fakeNotifier) Notify(ctx context.Context, target domain.EscalationTarget, incident *domain.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
	return nil
}

type failingNotifier struct{}

func (failingNotifier) Notify(ctx context.Context, target domain.EscalationTarget, incident *domain.Incident) error {
	return assert.AnError
}

func setup(t *testing.T) (*memstore.Store, *queue.MemQueue, *Scheduler, *fakeNotifier, *Worker) {
	t.Helper()
	st := memstore.New()
	q := queue.NewMemQueue()
	sched := NewScheduler(q)
	notifier := &fakeNotifier{}
	worker := NewWorker(q, st, sched, notifier, logger.NewSimpleLogger(), 2, nil)
	return st, q, sched, notifier, worker
}

func testPolicy() *domain.EscalationPolicy {
	return &domain.EscalationPolicy{
		ID:     "pol-1",
		TeamID: "team-a",
		Levels: []domain.EscalationLevel{
			{Number: 1, TimeoutMin: 0, Targets: []domain.EscalationTarget{{Kind: domain.TargetUser, ID: "user-1"}}},
			{Number: 2, TimeoutMin: 0, Targets: []domain.EscalationTarget{{Kind: domain.TargetUser, ID: "user-2"}}},
		},
		RepeatCount: 1,
	}
}

func TestWorkerNotifiesAndAdvancesLevel(t *testing.T) {
	st, q, sched, notifier, worker := setup(t)
	ctx := context.Background()
	policy := testPolicy()
	require.NoError(t, st.CreateEscalationPolicy(ctx, policy))

	inc := &domain.Incident{ID: "inc-1", TeamID: "team-a", Status: domain.IncidentOpen, EscalationPolicyID: policy.ID, CurrentLevel: 0, CreatedAt: time.Now()}
	require.NoError(t, st.CreateIncident(ctx, inc))
	require.NoError(t, sched.ScheduleFirst(ctx, inc.ID, policy))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	job, err := decodeJob(due[0].Payload)
	require.NoError(t, err)
	worker.process(ctx, due[0])
	_ = job

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "user-1", notifier.calls[0].ID)

	next, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, next, 1)

	updated, err := st.GetIncident(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentLevel)
}

func TestWorkerSkipsAcknowledgedIncident(t *testing.T) {
	st, q, sched, notifier, worker := setup(t)
	ctx := context.Background()
	policy := testPolicy()
	require.NoError(t, st.CreateEscalationPolicy(ctx, policy))

	inc := &domain.Incident{ID: "inc-1", TeamID: "team-a", Status: domain.IncidentAcknowledged, EscalationPolicyID: policy.ID, CurrentLevel: 1, CreatedAt: time.Now()}
	require.NoError(t, st.CreateIncident(ctx, inc))
	require.NoError(t, sched.ScheduleFirst(ctx, inc.ID, policy))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	worker.process(ctx, due[0])

	assert.Empty(t, notifier.calls)
}

func TestWorkerSkipsJobAlreadySuperseded(t *testing.T) {
	st, q, sched, notifier, worker := setup(t)
	ctx := context.Background()
	policy := testPolicy()
	require.NoError(t, st.CreateEscalationPolicy(ctx, policy))

	inc := &domain.Incident{ID: "inc-1", TeamID: "team-a", Status: domain.IncidentOpen, EscalationPolicyID: policy.ID, CurrentLevel: 2, CreatedAt: time.Now()}
	require.NoError(t, st.CreateIncident(ctx, inc))
	require.NoError(t, sched.ScheduleFirst(ctx, inc.ID, policy))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	worker.process(ctx, due[0])

	assert.Empty(t, notifier.calls)
}

func TestSchedulerStopsAfterRepeatCountExhausted(t *testing.T) {
	sched := NewScheduler(queue.NewMemQueue())
	policy := testPolicy()
	policy.RepeatCount = 0

	more, err := sched.ScheduleNext(context.Background(), "inc-1", policy, 2, 0)
	require.NoError(t, err)
	assert.False(t, more)
}

func TestWorkerRecordsAuditEventOnNotifyExhaustion(t *testing.T) {
	st := memstore.New()
	q := queue.NewMemQueue()
	sched := NewScheduler(q)
	auditSvc := audit.New(st)
	worker := NewWorker(q, st, sched, failingNotifier{}, logger.NewSimpleLogger(), 2, auditSvc)
	ctx := context.Background()

	policy := testPolicy()
	require.NoError(t, st.CreateEscalationPolicy(ctx, policy))
	inc := &domain.Incident{ID: "inc-1", TeamID: "team-a", Status: domain.IncidentOpen, EscalationPolicyID: policy.ID, CurrentLevel: 0, CreatedAt: time.Now()}
	require.NoError(t, st.CreateIncident(ctx, inc))
	require.NoError(t, sched.ScheduleFirst(ctx, inc.ID, policy))

	due, err := q.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	worker.process(ctx, due[0])

	events, err := auditSvc.List(ctx, "team-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "escalation.notify_exhausted", events[0].Action)
	assert.Equal(t, domain.AuditHigh, events[0].Severity)
}

func TestCancelAllRemovesQueuedJobs(t *testing.T) {
	q := queue.NewMemQueue()
	sched := NewScheduler(q)
	policy := testPolicy()
	require.NoError(t, sched.ScheduleFirst(context.Background(), "inc-1", policy))

	require.NoError(t, sched.CancelAll(context.Background(), "inc-1"))

	due, err := q.Due(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
