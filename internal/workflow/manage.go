package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/store"
)

type ManagerStore interface {
	store.WorkflowStore
}

// Manager owns workflow CRUD, versioning, and enable/disable toggling.
// Grounded on runbook.Service's version-bump-on-edit pattern, since
// spec.md §3 gives Workflow and Runbook the same
// {definition, version, SaveXVersion} shape.
type Manager struct {
	store ManagerStore
}

func NewManager(s ManagerStore) *Manager {
	return &Manager{store: s}
}

// Create persists a new workflow at version 1 and snapshots it.
func (m *Manager) Create(ctx context.Context, w *domain.Workflow) error {
	w.ID = uuid.NewString()
	w.Version = 1
	w.CreatedAt = time.Now()
	w.UpdatedAt = time.Now()
	if err := m.store.CreateWorkflow(ctx, w); err != nil {
		return err
	}
	return m.store.SaveWorkflowVersion(ctx, &domain.WorkflowVersion{
		WorkflowID: w.ID, Version: w.Version, Definition: w.Definition, CreatedAt: w.CreatedAt,
	})
}

// Update bumps the version and snapshots the new definition. Enabled
// state is preserved from the existing record: editing a definition
// does not implicitly toggle it live.
func (m *Manager) Update(ctx context.Context, w *domain.Workflow, changedBy, note string) error {
	existing, err := m.store.GetWorkflow(ctx, w.ID)
	if err != nil {
		return err
	}
	w.Enabled = existing.Enabled
	w.Version = existing.Version + 1
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = time.Now()

	if err := m.store.UpdateWorkflow(ctx, w); err != nil {
		return err
	}
	return m.store.SaveWorkflowVersion(ctx, &domain.WorkflowVersion{
		WorkflowID: w.ID, Version: w.Version, Definition: w.Definition, ChangeNote: note, ChangedBy: changedBy, CreatedAt: w.UpdatedAt,
	})
}

// Toggle flips Enabled, guarded by expectedVersion so two concurrent
// edits can't silently clobber each other (spec.md §6's
// "optimistic-concurrency-friendly" toggle semantics).
func (m *Manager) Toggle(ctx context.Context, workflowID string, expectedVersion int, enabled bool) (*domain.Workflow, error) {
	w, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if w.Version != expectedVersion {
		return nil, fmt.Errorf("workflow: version conflict toggling %s: have %d, expected %d", workflowID, w.Version, expectedVersion)
	}
	w.Enabled = enabled
	w.UpdatedAt = time.Now()
	if err := m.store.UpdateWorkflow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Duplicate clones a workflow's current definition into a new,
// disabled workflow, for editing without affecting the original.
func (m *Manager) Duplicate(ctx context.Context, workflowID, newName string) (*domain.Workflow, error) {
	src, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	clone := &domain.Workflow{
		Name:        newName,
		Description: src.Description,
		Scope:       src.Scope,
		TeamID:      src.TeamID,
		Definition:  src.Definition,
		Enabled:     false,
	}
	if err := m.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Rollback restores an older version's definition as a new current
// version, mirroring runbook.Service.Rollback.
func (m *Manager) Rollback(ctx context.Context, workflowID string, toVersion int, changedBy string) (*domain.Workflow, error) {
	old, err := m.store.GetWorkflowVersion(ctx, workflowID, toVersion)
	if err != nil {
		return nil, err
	}
	current, err := m.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	restored := *current
	restored.Definition = old.Definition
	restored.Version = current.Version + 1
	restored.UpdatedAt = time.Now()

	if err := m.store.UpdateWorkflow(ctx, &restored); err != nil {
		return nil, err
	}
	if err := m.store.SaveWorkflowVersion(ctx, &domain.WorkflowVersion{
		WorkflowID: workflowID, Version: restored.Version, Definition: restored.Definition,
		ChangeNote: fmt.Sprintf("rollback to v%d", toVersion), ChangedBy: changedBy, CreatedAt: restored.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return &restored, nil
}

// UseTemplate instantiates a new team-scoped, disabled workflow from a
// template's definition.
func (m *Manager) UseTemplate(ctx context.Context, templateID, teamID, name string) (*domain.Workflow, error) {
	tmpl, err := m.store.GetWorkflow(ctx, templateID)
	if err != nil {
		return nil, err
	}
	w := &domain.Workflow{
		Name:       name,
		Scope:      domain.ScopeTeam,
		TeamID:     teamID,
		Definition: tmpl.Definition,
		Enabled:    false,
	}
	if err := m.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}
