// Package audit appends a record of every mutating or security-relevant
// action to AuditStore. There is no update or delete method: the log
// is append-only by construction.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/domain"
)

type Store interface {
	AppendAuditEvent(ctx context.Context, ev *domain.AuditEvent) error
	ListAuditEvents(ctx context.Context, teamID string, limit int) ([]*domain.AuditEvent, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Record appends one audit event with AuditInfo severity.
func (s *Service) Record(ctx context.Context, actor, action, resourceType, resourceID, teamID string, metadata map[string]interface{}) error {
	return s.RecordWithSeverity(ctx, actor, action, resourceType, resourceID, teamID, domain.AuditInfo, metadata)
}

func (s *Service) RecordWithSeverity(ctx context.Context, actor, action, resourceType, resourceID, teamID string, severity domain.AuditSeverity, metadata map[string]interface{}) error {
	ev := &domain.AuditEvent{
		ID:           uuid.NewString(),
		Action:       action,
		Actor:        actor,
		TeamID:       teamID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		Severity:     severity,
		CreatedAt:    time.Now(),
	}
	return s.store.AppendAuditEvent(ctx, ev)
}

func (s *Service) List(ctx context.Context, teamID string, limit int) ([]*domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListAuditEvents(ctx, teamID, limit)
}

// ClassifySeverity maps an action to the severity an audit reader
// should see it at: approval state transitions and escalation
// misfires matter more than routine CRUD.
func ClassifySeverity(action string) domain.AuditSeverity {
	switch action {
	case "runbook.approve", "runbook.deprecate", "escalation_policy.update", "integration.delete", "escalation.notify_exhausted":
		return domain.AuditHigh
	default:
		return domain.AuditInfo
	}
}
