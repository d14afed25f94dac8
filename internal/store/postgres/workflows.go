package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateWorkflow(ctx context.Context, w *domain.Workflow) error {
	const q = `
		INSERT INTO workflows (
			id, name, description, scope, team_id, version, enabled, definition,
			is_template, template_category, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := s.pool.Exec(ctx, q,
		w.ID, w.Name, w.Description, w.Scope, nullIfEmpty(w.TeamID), w.Version, w.Enabled,
		w.Definition, w.IsTemplate, w.TemplateCategory, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating workflow: %w", err)
	}
	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	const q = `
		SELECT id, name, description, scope, team_id, version, enabled, definition,
			is_template, template_category, created_at, updated_at
		FROM workflows WHERE id=$1`
	row := s.pool.QueryRow(ctx, q, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetWorkflow", serr.KindNotFound, "workflow not found", serr.ErrWorkflowNotFound)
	}
	return w, err
}

func (s *Store) ListEnabledWorkflowsForScope(ctx context.Context, teamID string) ([]*domain.Workflow, error) {
	const q = `
		SELECT id, name, description, scope, team_id, version, enabled, definition,
			is_template, template_category, created_at, updated_at
		FROM workflows
		WHERE enabled AND (scope='global' OR team_id=$1)
		ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing workflows: %w", err)
	}
	defer rows.Close()

	var out []*domain.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) ListWorkflowTemplates(ctx context.Context, category domain.TemplateCategory) ([]*domain.Workflow, error) {
	q := `
		SELECT id, name, description, scope, team_id, version, enabled, definition,
			is_template, template_category, created_at, updated_at
		FROM workflows WHERE is_template`
	args := []interface{}{}
	if category != "" {
		q += ` AND template_category=$1`
		args = append(args, category)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing workflow templates: %w", err)
	}
	defer rows.Close()

	var out []*domain.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) UpdateWorkflow(ctx context.Context, w *domain.Workflow) error {
	const q = `
		UPDATE workflows SET
			name=$2, description=$3, version=$4, enabled=$5, definition=$6, updated_at=$7
		WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q, w.ID, w.Name, w.Description, w.Version, w.Enabled, w.Definition, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: updating workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateWorkflow", serr.KindNotFound, "workflow not found", serr.ErrWorkflowNotFound).WithID(w.ID)
	}
	return nil
}

func (s *Store) SaveWorkflowVersion(ctx context.Context, v *domain.WorkflowVersion) error {
	const q = `
		INSERT INTO workflow_versions (workflow_id, version, definition, change_note, changed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q, v.WorkflowID, v.Version, v.Definition, v.ChangeNote, v.ChangedBy, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving workflow version: %w", err)
	}
	return nil
}

func (s *Store) GetWorkflowVersion(ctx context.Context, workflowID string, version int) (*domain.WorkflowVersion, error) {
	const q = `
		SELECT workflow_id, version, definition, change_note, changed_by, created_at
		FROM workflow_versions WHERE workflow_id=$1 AND version=$2`
	row := s.pool.QueryRow(ctx, q, workflowID, version)
	var v domain.WorkflowVersion
	err := row.Scan(&v.WorkflowID, &v.Version, &v.Definition, &v.ChangeNote, &v.ChangedBy, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetWorkflowVersion", serr.KindNotFound, "workflow version not found", serr.ErrWorkflowNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning workflow version: %w", err)
	}
	return &v, nil
}

func scanWorkflow(row rowScanner) (*domain.Workflow, error) {
	var w domain.Workflow
	var teamID *string
	err := row.Scan(
		&w.ID, &w.Name, &w.Description, &w.Scope, &teamID, &w.Version, &w.Enabled, &w.Definition,
		&w.IsTemplate, &w.TemplateCategory, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning workflow: %w", err)
	}
	if teamID != nil {
		w.TeamID = *teamID
	}
	return &w, nil
}
