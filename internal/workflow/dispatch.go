package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/queue"
)

// WorkflowLister is the subset of store.WorkflowStore the dispatcher
// needs to find candidate workflows for a trigger event.
type WorkflowLister interface {
	ListEnabledWorkflowsForScope(ctx context.Context, teamID string) ([]*domain.Workflow, error)
}

// Dispatcher re-reads enabled workflows at event time (no caching of
// the enabled flag) and enqueues a WorkflowExecution for every trigger
// whose config matches, per spec.md §4.6 step 7.
type Dispatcher struct {
	lister WorkflowLister
	store  StateStore
	queue  queue.DelayedQueue
}

func NewDispatcher(lister WorkflowLister, store StateStore, q queue.DelayedQueue) *Dispatcher {
	return &Dispatcher{lister: lister, store: store, queue: q}
}

// DispatchJob is the payload pushed to the workflow-dispatch queue;
// cmd/worker's dispatch loop pops it and runs the execution through
// an Engine.
type DispatchJob struct {
	ExecutionID string `json:"execution_id"`
}

// Dispatch finds every enabled workflow matching ev, snapshots its
// definition into a new WorkflowExecution, persists it PENDING, and
// enqueues a dispatch job with DueAt set to now (the queue is reused
// as an immediate work queue rather than a delayed one here).
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.TriggerEvent, teamID string) ([]*domain.WorkflowExecution, error) {
	workflows, err := d.lister.ListEnabledWorkflowsForScope(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("workflow: listing enabled workflows: %w", err)
	}

	var executions []*domain.WorkflowExecution
	for _, w := range workflows {
		if !Matches(w.Definition, ev) {
			continue
		}

		exec := &domain.WorkflowExecution{
			ID:         uuid.NewString(),
			WorkflowID: w.ID,
			IncidentID: ev.IncidentID,
			Definition: w.Definition,
			Status:     domain.ExecPending,
		}
		if err := d.store.SaveExecution(ctx, exec); err != nil {
			return nil, fmt.Errorf("workflow: saving execution for workflow %s: %w", w.ID, err)
		}

		payload, err := json.Marshal(DispatchJob{ExecutionID: exec.ID})
		if err != nil {
			return nil, fmt.Errorf("workflow: encoding dispatch job: %w", err)
		}
		if err := d.queue.Schedule(ctx, queue.Job{ID: "workflow-dispatch:" + exec.ID, DueAt: time.Now(), Payload: payload}); err != nil {
			return nil, fmt.Errorf("workflow: enqueuing dispatch job: %w", err)
		}

		executions = append(executions, exec)
	}
	return executions, nil
}

// DecodeDispatchJob unmarshals a dispatch job payload popped from the queue.
func DecodeDispatchJob(payload []byte) (DispatchJob, error) {
	var job DispatchJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return DispatchJob{}, fmt.Errorf("workflow: decoding dispatch job: %w", err)
	}
	return job, nil
}
