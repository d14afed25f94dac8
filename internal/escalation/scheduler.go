package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/queue"
)

// Scheduler turns an EscalationPolicy into queued jobs: one job per
// incident, advanced level-by-level (and cycle-by-cycle once the
// policy's levels are exhausted, up to RepeatCount) until the incident
// is acknowledged or resolved.
type Scheduler struct {
	queue queue.DelayedQueue
}

func NewScheduler(q queue.DelayedQueue) *Scheduler {
	return &Scheduler{queue: q}
}

// ScheduleFirst queues the level-1 job for a freshly created incident.
func (s *Scheduler) ScheduleFirst(ctx context.Context, incidentID string, policy *domain.EscalationPolicy) error {
	if len(policy.Levels) == 0 {
		return fmt.Errorf("escalation: policy %s has no levels", policy.ID)
	}
	return s.scheduleLevel(ctx, incidentID, policy, 1, 0)
}

// ScheduleNext advances an incident to the next level, or the next
// repeat cycle if the policy's levels are exhausted. Returns false
// (with no error and no job scheduled) once RepeatCount cycles have
// been exhausted, meaning escalation stops.
func (s *Scheduler) ScheduleNext(ctx context.Context, incidentID string, policy *domain.EscalationPolicy, fromLevel, cycle int) (bool, error) {
	nextLevel := fromLevel + 1
	nextCycle := cycle
	if nextLevel > len(policy.Levels) {
		nextCycle++
		if nextCycle > policy.RepeatCount {
			return false, nil
		}
		nextLevel = 1
	}
	if err := s.scheduleLevel(ctx, incidentID, policy, nextLevel, nextCycle); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) scheduleLevel(ctx context.Context, incidentID string, policy *domain.EscalationPolicy, level, cycle int) error {
	lvl := policy.Levels[level-1]
	job := &domain.EscalationJob{
		IncidentID: incidentID,
		ToLevel:    level,
		Cycle:      cycle,
		DueAt:      time.Now().Add(time.Duration(lvl.TimeoutMin) * time.Minute),
	}
	job.ID = queue.EscalationJobID(job)
	return s.queue.Schedule(ctx, queue.Job{ID: job.ID, DueAt: job.DueAt, Payload: encodeJob(job)})
}

// CancelAll cancels every outstanding job for an incident, called on
// acknowledge or resolve.
func (s *Scheduler) CancelAll(ctx context.Context, incidentID string) error {
	return s.queue.CancelPrefix(ctx, fmt.Sprintf("escalation:%s:", incidentID))
}
