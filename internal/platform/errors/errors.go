// Package errors defines Sentinel's structured error type and the sentinel
// error values used across the control plane. It mirrors the teacher
// framework's errors.go convention: one wrapped error type compared with
// errors.Is/errors.As, never string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping and retry/circuit-breaker
// decisions. It is a closed set matching spec.md §7's error taxonomy.
type Kind string

const (
	KindSignature  Kind = "signature"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindPermission Kind = "permission"
	KindRateLimit  Kind = "rate_limit"
	KindDownstream Kind = "downstream"
	KindInternal   Kind = "internal"
)

// SentinelError is the structured error carried across package boundaries.
type SentinelError struct {
	Op      string // operation that failed, e.g. "escalation.Scheduler.Schedule"
	Kind    Kind
	ID      string // resource id involved, if any
	Message string
	Err     error
}

func (e *SentinelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *SentinelError) Unwrap() error {
	return e.Err
}

// New builds a SentinelError.
func New(op string, kind Kind, message string, err error) *SentinelError {
	return &SentinelError{Op: op, Kind: kind, Message: message, Err: err}
}

// WithID attaches the resource id involved in the failure.
func (e *SentinelError) WithID(id string) *SentinelError {
	e.ID = id
	return e
}

// KindOf extracts the Kind of err, walking wrapped errors. Returns
// KindInternal if err carries no SentinelError in its chain.
func KindOf(err error) Kind {
	var se *SentinelError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Sentinel error values compared via errors.Is across the codebase.
var (
	ErrIntegrationNotFound        = errors.New("integration not found")
	ErrIncidentNotFound           = errors.New("incident not found")
	ErrWorkflowNotFound           = errors.New("workflow not found")
	ErrWorkflowExecutionNotFound  = errors.New("workflow execution not found")
	ErrRunbookNotFound            = errors.New("runbook not found")
	ErrEscalationPolicyNotFound   = errors.New("escalation policy not found")
	ErrDuplicateDelivery          = errors.New("duplicate webhook delivery")
	ErrDuplicateIntegrationName   = errors.New("integration name already exists")
	ErrMissingSignature           = errors.New("missing signature header")
	ErrInvalidSignature           = errors.New("invalid signature")
	ErrWebhookExpired             = errors.New("webhook timestamp expired")
	ErrWebhookTimestampFuture     = errors.New("webhook timestamp in the future")
	ErrValidationFailed           = errors.New("validation failed")
	ErrPermissionDenied           = errors.New("permission denied")
	ErrRateLimited                = errors.New("rate limited")
	ErrRunbookHasRunningExecution = errors.New("runbook has a running execution")
	ErrRunbookDeprecated          = errors.New("runbook is deprecated")
	ErrCircuitBreakerOpen         = errors.New("circuit breaker is open")
	ErrMaxRetriesExceeded         = errors.New("max retry attempts exceeded")
	ErrContextCanceled            = errors.New("context canceled")
)

// IsRetryable reports whether err should be retried by a caller — 5xx,
// timeout, and network-shaped failures are retryable; validation,
// not-found, permission, and conflict are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindDownstream, KindInternal:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConfigurationError reports whether err stems from bad caller input
// rather than an infrastructure failure.
func IsConfigurationError(err error) bool {
	return KindOf(err) == KindValidation
}

// IsStateError reports whether err stems from an illegal state transition
// (e.g. editing a deprecated runbook).
func IsStateError(err error) bool {
	return KindOf(err) == KindConflict
}
