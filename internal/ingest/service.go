// Package ingest implements the webhook ingestion pipeline: signature
// verification, two-level dedup, payload normalization, incident
// creation/grouping, escalation scheduling, and workflow trigger
// dispatch, per spec.md §4.1-§4.6.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/fingerprint"
	"github.com/onwatch/sentinel/internal/incident"
	"github.com/onwatch/sentinel/internal/normalize"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/ratelimit"
	"github.com/onwatch/sentinel/internal/signature"
	"github.com/onwatch/sentinel/internal/store"
	"github.com/onwatch/sentinel/internal/workflow"
	"github.com/onwatch/sentinel/pkg/logger"
)

const defaultDedupWindow = 15 * time.Minute

// ValidationError carries every reason a payload failed normalization,
// rendered as Problem Details' validation_errors extension.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// RateLimitError carries the retry-after duration for a throttled request.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string { return "rate limited" }

// Result is what a successful (or duplicate) ingest call reports back
// to the HTTP handler, per spec.md §6's response contract.
type Result struct {
	AlertID     string
	IncidentID  string
	Status      string // "created" | "grouped" | "duplicate"
	Idempotent  bool
	Title       string
	Severity    domain.Severity
	TriggeredAt time.Time
}

// Service wires together every collaborator the ingestion pipeline
// needs. It holds no state of its own; everything durable lives in the
// stores it is constructed with.
type Service struct {
	integrations store.IntegrationStore
	deliveries   store.DeliveryStore
	policies     store.EscalationPolicyStore
	incidents    *incident.Service
	scheduler    *escalation.Scheduler
	dispatcher   *workflow.Dispatcher
	limiter      ratelimit.Limiter
	audit        *audit.Service
	verifier     *signature.Verifier
	log          logger.Logger
}

func NewService(
	integrations store.IntegrationStore,
	deliveries store.DeliveryStore,
	policies store.EscalationPolicyStore,
	incidents *incident.Service,
	scheduler *escalation.Scheduler,
	dispatcher *workflow.Dispatcher,
	limiter ratelimit.Limiter,
	auditSvc *audit.Service,
	verifier *signature.Verifier,
	log logger.Logger,
) *Service {
	return &Service{
		integrations: integrations,
		deliveries:   deliveries,
		policies:     policies,
		incidents:    incidents,
		scheduler:    scheduler,
		dispatcher:   dispatcher,
		limiter:      limiter,
		audit:        auditSvc,
		verifier:     verifier,
		log:          log,
	}
}

// Process runs one inbound webhook delivery through the full pipeline.
// A duplicate delivery (by idempotency key or content fingerprint) is
// reported as a Result, not an error: it is a successful no-op from the
// caller's perspective.
func (s *Service) Process(ctx context.Context, integrationName string, rawBody []byte, headers http.Header) (*Result, error) {
	integ, err := s.integrations.GetIntegrationByName(ctx, integrationName)
	if err != nil || integ == nil || !integ.Active {
		return nil, serr.New("ingest.Process", serr.KindNotFound, "unknown or inactive integration", serr.ErrIntegrationNotFound).WithID(integrationName)
	}

	if s.limiter != nil {
		ok, retryAfter, err := s.limiter.Allow(ctx, integ.ID)
		if err != nil {
			return nil, fmt.Errorf("ingest: checking rate limit: %w", err)
		}
		if !ok {
			return nil, &RateLimitError{RetryAfter: retryAfter}
		}
	}

	sigHeader := headers.Get(integ.SignatureHeader)
	tsHeader := ""
	if integ.TimestampHeader != "" {
		tsHeader = headers.Get(integ.TimestampHeader)
	}
	if err := s.verifier.Verify(integ, signature.Request{RawBody: rawBody, SignatureHeader: sigHeader, TimestampHeader: tsHeader}); err != nil {
		if s.audit != nil {
			_ = s.audit.RecordWithSeverity(ctx, "webhook:"+integrationName, "webhook.signature_rejected", "integration", integ.ID, integ.TeamID, domain.AuditHigh, map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, err
	}

	window := defaultDedupWindow
	if integ.DedupWindowMin > 0 {
		window = time.Duration(integ.DedupWindowMin) * time.Minute
	}

	idempotencyKey := ExtractIdempotencyKey(headers)
	if idempotencyKey != "" {
		existing, err := s.deliveries.FindDeliveryByIdempotencyKey(ctx, integ.ID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("ingest: checking idempotency key: %w", err)
		}
		if existing != nil {
			return &Result{AlertID: existing.AlertID, Status: "duplicate", Idempotent: true}, nil
		}
	}

	deliveryFP, err := fingerprint.Delivery(rawBody)
	if err != nil {
		if s.audit != nil {
			_ = s.audit.Record(ctx, "webhook:"+integrationName, "alert.validation_failed", "integration", integ.ID, integ.TeamID, map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}
	if existing, err := s.deliveries.FindDeliveryByFingerprint(ctx, integ.ID, deliveryFP, window); err != nil {
		return nil, fmt.Errorf("ingest: checking delivery fingerprint: %w", err)
	} else if existing != nil {
		return &Result{AlertID: existing.AlertID, Status: "duplicate", Idempotent: true}, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(rawBody, &raw); err != nil {
		msg := fmt.Sprintf("payload is not a valid JSON object: %v", err)
		if s.audit != nil {
			_ = s.audit.Record(ctx, "webhook:"+integrationName, "alert.validation_failed", "integration", integ.ID, integ.TeamID, map[string]interface{}{
				"error": msg,
			})
		}
		return nil, &ValidationError{Errors: []string{msg}}
	}
	alert, err := normalize.MapAlert(integ.Provider, integ.ID, raw)
	if err != nil {
		if s.audit != nil {
			_ = s.audit.Record(ctx, "webhook:"+integrationName, "alert.validation_failed", "integration", integ.ID, integ.TeamID, map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}

	policy, err := s.policies.GetDefaultEscalationPolicyForTeam(ctx, integ.TeamID)
	if err != nil {
		return nil, fmt.Errorf("ingest: loading escalation policy for team %s: %w", integ.TeamID, err)
	}

	normTitle, normSource, fields := normalize.GroupingFields(alert.Title, alert.Source, string(alert.Severity), integ.DefaultServiceID)
	incidentFP := fingerprint.Incident(normSource, normTitle, fields)

	inc, isNew, err := s.incidents.Ingest(ctx, alert, incidentFP, policy, window)
	if err != nil {
		return nil, fmt.Errorf("ingest: grouping alert into incident: %w", err)
	}

	delivery := &domain.WebhookDelivery{
		ID:                 uuid.NewString(),
		IntegrationID:      integ.ID,
		IdempotencyKey:     idempotencyKey,
		ContentFingerprint: deliveryFP,
		RawPayload:         rawBody,
		SanitizedHeaders:   SanitizeHeaders(headers),
		HTTPStatus:         http.StatusCreated,
		ProcessedAt:        time.Now(),
		AlertID:            alert.ID,
	}
	if err := s.deliveries.CreateDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("ingest: recording delivery: %w", err)
	}

	status := "grouped"
	if isNew {
		status = "created"

		if s.scheduler != nil {
			if err := s.scheduler.ScheduleFirst(ctx, inc.ID, policy); err != nil {
				s.log.Error("ingest: scheduling first escalation", "incident_id", inc.ID, "error", err)
			}
		}

		if s.dispatcher != nil {
			ev := domain.TriggerEvent{
				Type:       domain.TriggerIncidentCreated,
				IncidentID: inc.ID,
				Data: map[string]interface{}{
					"priority": inc.Priority,
					"severity": string(alert.Severity),
					"service":  integ.DefaultServiceID,
				},
			}
			if _, err := s.dispatcher.Dispatch(ctx, ev, integ.TeamID); err != nil {
				s.log.Error("ingest: dispatching workflow triggers", "incident_id", inc.ID, "error", err)
			}
		}
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, "webhook:"+integrationName, "alert.ingested", "alert", alert.ID, integ.TeamID, map[string]interface{}{
			"incident_id": inc.ID,
			"status":      status,
		})
	}

	return &Result{
		AlertID:     alert.ID,
		IncidentID:  inc.ID,
		Status:      status,
		Title:       alert.Title,
		Severity:    alert.Severity,
		TriggeredAt: alert.TriggeredAt,
	}, nil
}
