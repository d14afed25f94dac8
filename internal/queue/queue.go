// Package queue schedules escalation jobs for future delivery and
// cancels them when an incident acknowledges or resolves before they fire.
package queue

import (
	"context"
	"time"
)

// Job is one scheduled unit of delayed work. ID follows the canonical
// escalation job id shape: escalation:{incidentId}:{toLevel}:{cycle}.
type Job struct {
	ID      string
	DueAt   time.Time
	Payload []byte
}

// DelayedQueue schedules jobs for future delivery and lets callers pull
// whatever is currently due. Implementations must make Due at-most-once
// per caller: a job returned by Due is removed before the caller can act
// on it, so two workers polling concurrently never both fire the same job.
type DelayedQueue interface {
	// Schedule enqueues job for delivery at job.DueAt. Scheduling a job
	// with an ID that already exists replaces its due time and payload.
	Schedule(ctx context.Context, job Job) error

	// Due pops up to max jobs whose DueAt has passed, in ascending
	// DueAt order.
	Due(ctx context.Context, max int) ([]Job, error)

	// Cancel removes a job by exact ID. Canceling a job that was
	// already popped by Due or never existed is a no-op.
	Cancel(ctx context.Context, id string) error

	// CancelPrefix removes every job whose ID starts with prefix, used
	// to cancel every remaining escalation cycle for an incident
	// (escalation:{incidentId}:) on acknowledge/resolve.
	CancelPrefix(ctx context.Context, prefix string) error
}
