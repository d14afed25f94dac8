// Package store defines the repository interfaces used by the domain
// packages, kept independent of any particular backend. internal/store/postgres
// implements them against jackc/pgx/v5; internal/store/memstore provides
// in-memory fakes for tests and for the gateway's development mode.
//
// Method names are entity-qualified (CreateIncident, not Create) so a
// single backing store can implement every interface here without
// colliding method sets.
package store

import (
	"context"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
)

type IntegrationStore interface {
	CreateIntegration(ctx context.Context, integ *domain.Integration) error
	GetIntegration(ctx context.Context, id string) (*domain.Integration, error)
	GetIntegrationByName(ctx context.Context, name string) (*domain.Integration, error)
	ListIntegrations(ctx context.Context) ([]*domain.Integration, error)
	UpdateIntegration(ctx context.Context, integ *domain.Integration) error
	DeleteIntegration(ctx context.Context, id string) error
}

type DeliveryStore interface {
	// FindDeliveryByIdempotencyKey and FindDeliveryByFingerprint both scope
	// to the owning integration: the same key/fingerprint on two
	// different integrations are unrelated deliveries.
	FindDeliveryByIdempotencyKey(ctx context.Context, integrationID, key string) (*domain.WebhookDelivery, error)
	FindDeliveryByFingerprint(ctx context.Context, integrationID, fingerprint string, within time.Duration) (*domain.WebhookDelivery, error)
	CreateDelivery(ctx context.Context, d *domain.WebhookDelivery) error
}

type AlertStore interface {
	CreateAlert(ctx context.Context, a *domain.Alert) error
	GetAlert(ctx context.Context, id string) (*domain.Alert, error)
	ListAlertsByIncident(ctx context.Context, incidentID string) ([]*domain.Alert, error)
	UpdateAlert(ctx context.Context, a *domain.Alert) error
}

// IncidentStore supports the row-locking semantics incident dedup needs:
// FindOpenIncidentByFingerprint must be called within a transaction
// obtained from WithIncidentTx when the caller intends to
// create-or-update atomically.
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	UpdateIncident(ctx context.Context, inc *domain.Incident) error
	FindOpenIncidentByFingerprint(ctx context.Context, teamID, fingerprint string, within time.Duration) (*domain.Incident, error)
	WithIncidentTx(ctx context.Context, fn func(ctx context.Context, txStore IncidentStore) error) error
}

type EscalationPolicyStore interface {
	GetEscalationPolicy(ctx context.Context, id string) (*domain.EscalationPolicy, error)
	GetDefaultEscalationPolicyForTeam(ctx context.Context, teamID string) (*domain.EscalationPolicy, error)
	CreateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error
	UpdateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error
}

type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, w *domain.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	ListEnabledWorkflowsForScope(ctx context.Context, teamID string) ([]*domain.Workflow, error)
	UpdateWorkflow(ctx context.Context, w *domain.Workflow) error
	SaveWorkflowVersion(ctx context.Context, v *domain.WorkflowVersion) error
	GetWorkflowVersion(ctx context.Context, workflowID string, version int) (*domain.WorkflowVersion, error)
	ListWorkflowTemplates(ctx context.Context, category domain.TemplateCategory) ([]*domain.Workflow, error)
}

type WorkflowExecutionStore interface {
	SaveExecution(ctx context.Context, exec *domain.WorkflowExecution) error
	UpdateExecution(ctx context.Context, exec *domain.WorkflowExecution) error
	GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error)
	ListIncompleteExecutions(ctx context.Context) ([]*domain.WorkflowExecution, error)
}

type RunbookStore interface {
	CreateRunbook(ctx context.Context, r *domain.Runbook) error
	GetRunbook(ctx context.Context, id string) (*domain.Runbook, error)
	ListRunbooks(ctx context.Context, teamID string) ([]*domain.Runbook, error)
	UpdateRunbook(ctx context.Context, r *domain.Runbook) error
	SaveRunbookVersion(ctx context.Context, v *domain.RunbookVersion) error
	GetRunbookVersion(ctx context.Context, runbookID string, version int) (*domain.RunbookVersion, error)
	ListRunbookVersions(ctx context.Context, runbookID string) ([]*domain.RunbookVersion, error)
	HasRunningRunbookExecution(ctx context.Context, runbookID string) (bool, error)
}

type RunbookExecutionStore interface {
	CreateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error
	UpdateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error
	GetRunbookExecution(ctx context.Context, id string) (*domain.RunbookExecution, error)
}

type AuditStore interface {
	AppendAuditEvent(ctx context.Context, ev *domain.AuditEvent) error
	ListAuditEvents(ctx context.Context, teamID string, limit int) ([]*domain.AuditEvent, error)
}
