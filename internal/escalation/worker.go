package escalation

import (
	"context"
	"time"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/pkg/logger"
	"github.com/onwatch/sentinel/resilience"
)

// IncidentReader is the subset of store.IncidentStore/EscalationPolicyStore
// the worker needs to decide whether a fired job still matters.
type IncidentReader interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	UpdateIncident(ctx context.Context, inc *domain.Incident) error
	GetEscalationPolicy(ctx context.Context, id string) (*domain.EscalationPolicy, error)
}

// Worker polls the delayed queue and pages the escalation targets of
// whatever incidents are still unacknowledged when their job fires.
// Concurrency is bounded by a semaphore the way
// pkg/orchestration/executor.go bounds parallel step execution, since
// jobs for different incidents are independent of one another.
type Worker struct {
	queue     queue.DelayedQueue
	reader    IncidentReader
	scheduler *Scheduler
	notifier  Notifier
	log       logger.Logger
	retry     *resilience.RetryConfig
	sem       chan struct{}
	audit     *audit.Service
}

func NewWorker(q queue.DelayedQueue, reader IncidentReader, scheduler *Scheduler, notifier Notifier, log logger.Logger, concurrency int, auditSvc *audit.Service) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Worker{
		queue:     q,
		reader:    reader,
		scheduler: scheduler,
		notifier:  notifier,
		log:       log,
		retry:     resilience.DefaultRetryConfig(),
		sem:       make(chan struct{}, concurrency),
		audit:     auditSvc,
	}
}

// PollOnce pops up to max due jobs and processes each concurrently,
// bounded by the worker's semaphore. It returns once every popped job
// has been handled.
func (w *Worker) PollOnce(ctx context.Context, max int) error {
	jobs, err := w.queue.Due(ctx, max)
	if err != nil {
		return err
	}

	done := make(chan struct{}, len(jobs))
	for _, j := range jobs {
		j := j
		w.sem <- struct{}{}
		go func() {
			defer func() { <-w.sem; done <- struct{}{} }()
			w.process(ctx, j)
		}()
	}
	for range jobs {
		<-done
	}
	return nil
}

// Run polls every interval until ctx is canceled.
func (w *Worker) Run(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.PollOnce(ctx, batchSize); err != nil {
				w.log.Error("escalation worker poll failed", "error", err)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, j queue.Job) {
	job, err := decodeJob(j.Payload)
	if err != nil {
		w.log.Error("escalation: decoding job payload", "job_id", j.ID, "error", err)
		return
	}

	inc, err := w.reader.GetIncident(ctx, job.IncidentID)
	if err != nil {
		if serr.IsNotFound(err) {
			return
		}
		w.log.Error("escalation: loading incident", "incident_id", job.IncidentID, "error", err)
		return
	}

	// At-most-once: re-check state at fire time rather than trusting
	// the schedule, since the incident may have been acknowledged or
	// resolved after the job was queued, or a later level may already
	// have fired for it.
	if inc.Status != domain.IncidentOpen || inc.CurrentLevel >= job.ToLevel {
		return
	}

	policy, err := w.reader.GetEscalationPolicy(ctx, inc.EscalationPolicyID)
	if err != nil {
		w.log.Error("escalation: loading policy", "policy_id", inc.EscalationPolicyID, "error", err)
		return
	}
	if job.ToLevel > len(policy.Levels) {
		return
	}

	inc.CurrentLevel = job.ToLevel
	if err := w.reader.UpdateIncident(ctx, inc); err != nil {
		w.log.Error("escalation: persisting current level", "incident_id", inc.ID, "error", err)
		return
	}
	level := policy.Levels[job.ToLevel-1]
	for _, target := range level.Targets {
		err := resilience.Retry(ctx, w.retry, func() error {
			return w.notifier.Notify(ctx, target, inc)
		})
		if err != nil {
			w.log.Error("escalation: notifying target", "incident_id", inc.ID, "target", target.ID, "error", err)
			if w.audit != nil {
				_ = w.audit.RecordWithSeverity(ctx, "escalation-worker", "escalation.notify_exhausted", "incident", inc.ID, inc.TeamID,
					audit.ClassifySeverity("escalation.notify_exhausted"),
					map[string]interface{}{"target_id": target.ID, "level": job.ToLevel, "error": err.Error()})
			}
		}
	}

	if _, err := w.scheduler.ScheduleNext(ctx, inc.ID, policy, job.ToLevel, job.Cycle); err != nil {
		w.log.Error("escalation: scheduling next level", "incident_id", inc.ID, "error", err)
	}
}
