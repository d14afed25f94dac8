package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/queue"
)

type fakeLister struct {
	workflows []*domain.Workflow
}

func (l *fakeLister) ListEnabledWorkflowsForScope(ctx context.Context, teamID string) ([]*domain.Workflow, error) {
	return l.workflows, nil
}

func TestDispatchEnqueuesOnlyMatchingWorkflows(t *testing.T) {
	matching := &domain.Workflow{
		ID: "wf-1",
		Definition: domain.WorkflowDefinition{
			Enabled: true,
			Trigger: domain.TriggerConfig{Type: domain.TriggerIncidentCreated},
			Nodes:   []domain.WorkflowNode{{ID: "trigger", Kind: domain.NodeTrigger}},
		},
	}
	notMatching := &domain.Workflow{
		ID: "wf-2",
		Definition: domain.WorkflowDefinition{
			Enabled: true,
			Trigger: domain.TriggerConfig{Type: domain.TriggerEscalation},
			Nodes:   []domain.WorkflowNode{{ID: "trigger", Kind: domain.NodeTrigger}},
		},
	}
	lister := &fakeLister{workflows: []*domain.Workflow{matching, notMatching}}
	store := &fakeStore{}
	q := queue.NewMemQueue()
	d := NewDispatcher(lister, store, q)

	execs, err := d.Dispatch(context.Background(), domain.TriggerEvent{
		Type:       domain.TriggerIncidentCreated,
		IncidentID: "inc-1",
	}, "team-a")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "wf-1", execs[0].WorkflowID)
	assert.Equal(t, domain.ExecPending, execs[0].Status)
	require.Len(t, store.saved, 1)

	due, err := q.Due(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	job, err := DecodeDispatchJob(due[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, execs[0].ID, job.ExecutionID)
}

func TestDispatchSkipsDisabledWorkflows(t *testing.T) {
	disabled := &domain.Workflow{
		ID: "wf-1",
		Definition: domain.WorkflowDefinition{
			Enabled: false,
			Trigger: domain.TriggerConfig{Type: domain.TriggerIncidentCreated},
		},
	}
	lister := &fakeLister{workflows: []*domain.Workflow{disabled}}
	store := &fakeStore{}
	q := queue.NewMemQueue()
	d := NewDispatcher(lister, store, q)

	execs, err := d.Dispatch(context.Background(), domain.TriggerEvent{Type: domain.TriggerIncidentCreated}, "team-a")
	require.NoError(t, err)
	assert.Empty(t, execs)
}
