// Package incident groups normalized alerts into incidents, deduping by
// content fingerprint within a team-scoped time window.
package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/store"
)

type Store interface {
	store.AlertStore
	store.IncidentStore
}

type Service struct {
	store     Store
	scheduler *escalation.Scheduler
}

func New(s Store, scheduler *escalation.Scheduler) *Service {
	return &Service{store: s, scheduler: scheduler}
}

// Ingest records alert and either attaches it to the open incident
// matching fingerprint within window, or creates a new one. The whole
// find-or-create happens inside WithIncidentTx so two deliveries
// racing on the same fingerprint serialize on the row lock rather than
// both creating an incident.
func (s *Service) Ingest(ctx context.Context, alert *domain.Alert, fingerprint string, policy *domain.EscalationPolicy, window time.Duration) (*domain.Incident, bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	var result *domain.Incident
	var isNew bool
	err := s.store.WithIncidentTx(ctx, func(ctx context.Context, tx store.IncidentStore) error {
		existing, err := tx.FindOpenIncidentByFingerprint(ctx, policy.TeamID, fingerprint, window)
		if err != nil {
			return fmt.Errorf("incident: finding existing incident: %w", err)
		}

		if existing != nil {
			existing.AlertCount++
			if err := tx.UpdateIncident(ctx, existing); err != nil {
				return fmt.Errorf("incident: updating incident %s: %w", existing.ID, err)
			}
			alert.IncidentID = existing.ID
			result = existing
			return nil
		}

		inc := &domain.Incident{
			ID:                 uuid.NewString(),
			Fingerprint:        fingerprint,
			Priority:           severityToPriority(alert.Severity),
			Status:             domain.IncidentOpen,
			TeamID:             policy.TeamID,
			CurrentLevel:       0,
			EscalationPolicyID: policy.ID,
			AlertCount:         1,
			CreatedAt:          time.Now(),
		}
		if err := tx.CreateIncident(ctx, inc); err != nil {
			return fmt.Errorf("incident: creating incident: %w", err)
		}
		alert.IncidentID = inc.ID
		result = inc
		isNew = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, false, fmt.Errorf("incident: saving alert: %w", err)
	}
	return result, isNew, nil
}

// Acknowledge transitions an incident to ACKNOWLEDGED and assigns it,
// then cancels every queued escalation job for it so no further level
// fires once a human has taken ownership.
func (s *Service) Acknowledge(ctx context.Context, incidentID, userID string) (*domain.Incident, error) {
	inc, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.Status == domain.IncidentResolved {
		return nil, fmt.Errorf("incident: cannot acknowledge resolved incident %s", incidentID)
	}
	now := time.Now()
	inc.Status = domain.IncidentAcknowledged
	inc.AssignedUserID = userID
	inc.AcknowledgedAt = &now
	if err := s.store.UpdateIncident(ctx, inc); err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		if err := s.scheduler.CancelAll(ctx, incidentID); err != nil {
			return nil, fmt.Errorf("incident: canceling escalation jobs for %s: %w", incidentID, err)
		}
	}
	return inc, nil
}

// Resolve transitions an incident to RESOLVED from any prior status and
// cancels every queued escalation job for it.
func (s *Service) Resolve(ctx context.Context, incidentID string) (*domain.Incident, error) {
	inc, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inc.Status = domain.IncidentResolved
	inc.ResolvedAt = &now
	if err := s.store.UpdateIncident(ctx, inc); err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		if err := s.scheduler.CancelAll(ctx, incidentID); err != nil {
			return nil, fmt.Errorf("incident: canceling escalation jobs for %s: %w", incidentID, err)
		}
	}
	return inc, nil
}

func severityToPriority(sev domain.Severity) string {
	switch sev {
	case domain.SeverityCritical:
		return "P1"
	case domain.SeverityHigh:
		return "P2"
	case domain.SeverityMedium:
		return "P3"
	default:
		return "P4"
	}
}
