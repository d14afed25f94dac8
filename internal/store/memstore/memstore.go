// Package memstore provides in-memory implementations of every
// internal/store repository interface, for unit tests and for running
// cmd/gateway without Postgres during development.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/store"
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	integrations map[string]*domain.Integration
	deliveries   []*domain.WebhookDelivery
	alerts       map[string]*domain.Alert
	incidents    map[string]*domain.Incident
	policies     map[string]*domain.EscalationPolicy
	workflows    map[string]*domain.Workflow
	wfVersions   map[string][]*domain.WorkflowVersion
	executions   map[string]*domain.WorkflowExecution
	runbooks     map[string]*domain.Runbook
	rbVersions   map[string][]*domain.RunbookVersion
	rbExecutions map[string]*domain.RunbookExecution
	audit        []*domain.AuditEvent
}

func New() *Store {
	return &Store{
		integrations: make(map[string]*domain.Integration),
		alerts:       make(map[string]*domain.Alert),
		incidents:    make(map[string]*domain.Incident),
		policies:     make(map[string]*domain.EscalationPolicy),
		workflows:    make(map[string]*domain.Workflow),
		wfVersions:   make(map[string][]*domain.WorkflowVersion),
		executions:   make(map[string]*domain.WorkflowExecution),
		runbooks:     make(map[string]*domain.Runbook),
		rbVersions:   make(map[string][]*domain.RunbookVersion),
		rbExecutions: make(map[string]*domain.RunbookExecution),
	}
}

// --- integrations ---

func (s *Store) CreateIntegration(ctx context.Context, integ *domain.Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.integrations {
		if existing.Name == integ.Name {
			return serr.New("memstore.Create", serr.KindConflict, "integration name already exists", serr.ErrDuplicateIntegrationName)
		}
	}
	cp := *integ
	s.integrations[integ.ID] = &cp
	return nil
}

func (s *Store) GetIntegration(ctx context.Context, id string) (*domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integ, ok := s.integrations[id]
	if !ok {
		return nil, serr.New("memstore.Get", serr.KindNotFound, "integration not found", serr.ErrIntegrationNotFound).WithID(id)
	}
	cp := *integ
	return &cp, nil
}

func (s *Store) GetIntegrationByName(ctx context.Context, name string) (*domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, integ := range s.integrations {
		if integ.Name == name {
			cp := *integ
			return &cp, nil
		}
	}
	return nil, serr.New("memstore.GetByName", serr.KindNotFound, "integration not found", serr.ErrIntegrationNotFound)
}

func (s *Store) ListIntegrations(ctx context.Context) ([]*domain.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Integration, 0, len(s.integrations))
	for _, integ := range s.integrations {
		cp := *integ
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateIntegration(ctx context.Context, integ *domain.Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.integrations[integ.ID]; !ok {
		return serr.New("memstore.Update", serr.KindNotFound, "integration not found", serr.ErrIntegrationNotFound).WithID(integ.ID)
	}
	cp := *integ
	s.integrations[integ.ID] = &cp
	return nil
}

func (s *Store) DeleteIntegration(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.integrations, id)
	return nil
}

// --- deliveries ---

func (s *Store) FindDeliveryByIdempotencyKey(ctx context.Context, integrationID, key string) (*domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.IntegrationID == integrationID && d.IdempotencyKey != "" && d.IdempotencyKey == key {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) FindDeliveryByFingerprint(ctx context.Context, integrationID, fingerprint string, within time.Duration) (*domain.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-within)
	for _, d := range s.deliveries {
		if d.IntegrationID == integrationID && d.ContentFingerprint == fingerprint && d.ProcessedAt.After(cutoff) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.deliveries = append(s.deliveries, &cp)
	return nil
}

// --- alerts ---

func (s *Store) CreateAlert(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, serr.New("memstore.GetAlert", serr.KindNotFound, "alert not found", nil).WithID(id)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAlertsByIncident(ctx context.Context, incidentID string) ([]*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		if a.IncidentID == incidentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateAlert(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

// --- incidents ---

func (s *Store) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inc
	s.incidents[inc.ID] = &cp
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, serr.New("memstore.GetIncident", serr.KindNotFound, "incident not found", serr.ErrIncidentNotFound).WithID(id)
	}
	cp := *inc
	return &cp, nil
}

func (s *Store) UpdateIncident(ctx context.Context, inc *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; !ok {
		return serr.New("memstore.UpdateIncident", serr.KindNotFound, "incident not found", serr.ErrIncidentNotFound).WithID(inc.ID)
	}
	cp := *inc
	s.incidents[inc.ID] = &cp
	return nil
}

func (s *Store) FindOpenIncidentByFingerprint(ctx context.Context, teamID, fingerprint string, within time.Duration) (*domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-within)
	for _, inc := range s.incidents {
		if inc.TeamID == teamID && inc.Fingerprint == fingerprint && inc.Status != domain.IncidentResolved && inc.CreatedAt.After(cutoff) {
			cp := *inc
			return &cp, nil
		}
	}
	return nil, nil
}

// WithIncidentTx runs fn against the same in-memory store, holding a
// dedicated transaction mutex (not s.mu, which fn's store calls take);
// memstore has no real transactions, but serializes callers the way a
// SELECT ... FOR UPDATE would.
func (s *Store) WithIncidentTx(ctx context.Context, fn func(ctx context.Context, txStore store.IncidentStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s)
}

// --- escalation policies ---

func (s *Store) GetEscalationPolicy(ctx context.Context, id string) (*domain.EscalationPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, serr.New("memstore.GetPolicy", serr.KindNotFound, "escalation policy not found", serr.ErrEscalationPolicyNotFound).WithID(id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetDefaultEscalationPolicyForTeam(ctx context.Context, teamID string) (*domain.EscalationPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.policies {
		if p.TeamID == teamID && p.IsDefault {
			cp := *p
			return &cp, nil
		}
	}
	return nil, serr.New("memstore.GetDefaultForTeam", serr.KindNotFound, "no default escalation policy for team", serr.ErrEscalationPolicyNotFound).WithID(teamID)
}

func (s *Store) CreateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

func (s *Store) UpdateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

// --- workflows ---

func (s *Store) CreateWorkflow(ctx context.Context, w *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.workflows[w.ID] = &cp
	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, serr.New("memstore.GetWorkflow", serr.KindNotFound, "workflow not found", serr.ErrWorkflowNotFound).WithID(id)
	}
	cp := *w
	return &cp, nil
}

func (s *Store) ListEnabledWorkflowsForScope(ctx context.Context, teamID string) ([]*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Workflow
	for _, w := range s.workflows {
		if !w.Enabled {
			continue
		}
		if w.Scope == domain.ScopeGlobal || w.TeamID == teamID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateWorkflow(ctx context.Context, w *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.workflows[w.ID] = &cp
	return nil
}

func (s *Store) SaveWorkflowVersion(ctx context.Context, v *domain.WorkflowVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.wfVersions[v.WorkflowID] = append(s.wfVersions[v.WorkflowID], &cp)
	return nil
}

func (s *Store) GetWorkflowVersion(ctx context.Context, workflowID string, version int) (*domain.WorkflowVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.wfVersions[workflowID] {
		if v.Version == version {
			cp := *v
			return &cp, nil
		}
	}
	return nil, serr.New("memstore.GetWorkflowVersion", serr.KindNotFound, "workflow version not found", serr.ErrWorkflowNotFound).WithID(workflowID)
}

func (s *Store) ListWorkflowTemplates(ctx context.Context, category domain.TemplateCategory) ([]*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Workflow
	for _, w := range s.workflows {
		if w.IsTemplate && (category == "" || w.TemplateCategory == category) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- workflow executions ---

func (s *Store) SaveExecution(ctx context.Context, exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, exec *domain.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	s.executions[exec.ID] = &cp
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[id]
	if !ok {
		return nil, serr.New("memstore.GetExecution", serr.KindNotFound, "workflow execution not found", nil).WithID(id)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListIncompleteExecutions(ctx context.Context) ([]*domain.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.WorkflowExecution
	for _, e := range s.executions {
		if e.Status == domain.ExecPending || e.Status == domain.ExecRunning {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- runbooks ---

func (s *Store) CreateRunbook(ctx context.Context, r *domain.Runbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runbooks[r.ID] = &cp
	return nil
}

func (s *Store) GetRunbook(ctx context.Context, id string) (*domain.Runbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runbooks[id]
	if !ok {
		return nil, serr.New("memstore.GetRunbook", serr.KindNotFound, "runbook not found", serr.ErrRunbookNotFound).WithID(id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRunbooks(ctx context.Context, teamID string) ([]*domain.Runbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Runbook
	for _, r := range s.runbooks {
		if teamID == "" || r.TeamID == teamID || r.TeamID == "" {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateRunbook(ctx context.Context, r *domain.Runbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runbooks[r.ID] = &cp
	return nil
}

func (s *Store) SaveRunbookVersion(ctx context.Context, v *domain.RunbookVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.rbVersions[v.RunbookID] = append(s.rbVersions[v.RunbookID], &cp)
	return nil
}

func (s *Store) GetRunbookVersion(ctx context.Context, runbookID string, version int) (*domain.RunbookVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.rbVersions[runbookID] {
		if v.Version == version {
			cp := *v
			return &cp, nil
		}
	}
	return nil, serr.New("memstore.GetRunbookVersion", serr.KindNotFound, "runbook version not found", serr.ErrRunbookNotFound).WithID(runbookID)
}

func (s *Store) ListRunbookVersions(ctx context.Context, runbookID string) ([]*domain.RunbookVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.RunbookVersion, len(s.rbVersions[runbookID]))
	for i, v := range s.rbVersions[runbookID] {
		cp := *v
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) HasRunningRunbookExecution(ctx context.Context, runbookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rbExecutions {
		if e.RunbookID == runbookID && (e.Status == domain.RunbookPending || e.Status == domain.RunbookRunning) {
			return true, nil
		}
	}
	return false, nil
}

// --- runbook executions ---

func (s *Store) CreateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.rbExecutions[e.ID] = &cp
	return nil
}

func (s *Store) UpdateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.rbExecutions[e.ID] = &cp
	return nil
}

func (s *Store) GetRunbookExecution(ctx context.Context, id string) (*domain.RunbookExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rbExecutions[id]
	if !ok {
		return nil, serr.New("memstore.GetRunbookExecution", serr.KindNotFound, "runbook execution not found", nil).WithID(id)
	}
	cp := *e
	return &cp, nil
}

// --- audit ---

func (s *Store) AppendAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ev
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *Store) ListAuditEvents(ctx context.Context, teamID string, limit int) ([]*domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AuditEvent
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		ev := s.audit[i]
		if teamID == "" || ev.TeamID == teamID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}
