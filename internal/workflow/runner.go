package workflow

import (
	"context"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/pkg/logger"
)

// ExecutionStore is the subset of store.WorkflowExecutionStore the
// runner needs to resume an execution and recover crashed ones.
type ExecutionStore interface {
	StateStore
	GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error)
	ListIncompleteExecutions(ctx context.Context) ([]*domain.WorkflowExecution, error)
}

// Runner pops DispatchJobs off the workflow-dispatch queue and drives
// each one through an Engine, mirroring escalation.Worker's poll loop
// shape (ticker + batch Due) but against the dispatch queue instead of
// the escalation one. Jobs of a batch run one after another, not in
// per-job goroutines.
type Runner struct {
	queue  queue.DelayedQueue
	store  ExecutionStore
	engine *Engine
	log    logger.Logger
}

func NewRunner(q queue.DelayedQueue, store ExecutionStore, engine *Engine, log logger.Logger) *Runner {
	return &Runner{queue: q, store: store, engine: engine, log: log}
}

// PollOnce pops up to max due dispatch jobs and runs each execution.
func (r *Runner) PollOnce(ctx context.Context, max int) error {
	jobs, err := r.queue.Due(ctx, max)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		r.run(ctx, j)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, j queue.Job) {
	job, err := DecodeDispatchJob(j.Payload)
	if err != nil {
		r.log.Error("workflow: decoding dispatch job", "job_id", j.ID, "error", err)
		return
	}
	exec, err := r.store.GetExecution(ctx, job.ExecutionID)
	if err != nil {
		r.log.Error("workflow: loading execution", "execution_id", job.ExecutionID, "error", err)
		return
	}
	if err := r.engine.Run(ctx, exec); err != nil {
		r.log.Error("workflow: running execution", "execution_id", exec.ID, "error", err)
	}
}

// Run polls the dispatch queue every interval until ctx is canceled.
func (r *Runner) Run(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.PollOnce(ctx, batchSize); err != nil {
				r.log.Error("workflow dispatch poll failed", "error", err)
			}
		}
	}
}

// RecoverIncomplete re-runs every execution left RUNNING or PENDING by a
// prior process crash, per spec.md §5's crash-safety requirement.
func (r *Runner) RecoverIncomplete(ctx context.Context) error {
	execs, err := r.store.ListIncompleteExecutions(ctx)
	if err != nil {
		return err
	}
	for _, exec := range execs {
		if err := r.engine.Run(ctx, exec); err != nil {
			r.log.Error("workflow: recovering execution", "execution_id", exec.ID, "error", err)
		}
	}
	return nil
}
