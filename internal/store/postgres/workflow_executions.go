package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) SaveExecution(ctx context.Context, e *domain.WorkflowExecution) error {
	const q = `
		INSERT INTO workflow_executions (
			id, workflow_id, incident_id, definition, status, current_node_id,
			completed_nodes, started_at, completed_at, failed_at, error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.WorkflowID, e.IncidentID, e.Definition, e.Status, nullIfEmpty(e.CurrentNodeID),
		e.CompletedNodes, e.StartedAt, e.CompletedAt, e.FailedAt, e.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: saving workflow execution: %w", err)
	}
	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, e *domain.WorkflowExecution) error {
	const q = `
		UPDATE workflow_executions SET
			status=$2, current_node_id=$3, completed_nodes=$4,
			completed_at=$5, failed_at=$6, error=$7
		WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q,
		e.ID, e.Status, nullIfEmpty(e.CurrentNodeID), e.CompletedNodes, e.CompletedAt, e.FailedAt, e.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating workflow execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateExecution", serr.KindNotFound, "workflow execution not found", serr.ErrWorkflowExecutionNotFound).WithID(e.ID)
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	const q = `
		SELECT id, workflow_id, incident_id, definition, status, current_node_id,
			completed_nodes, started_at, completed_at, failed_at, error
		FROM workflow_executions WHERE id=$1`
	row := s.pool.QueryRow(ctx, q, id)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetExecution", serr.KindNotFound, "workflow execution not found", serr.ErrWorkflowExecutionNotFound)
	}
	return e, err
}

// ListIncompleteExecutions returns executions still RUNNING at process
// start, so a worker restart can resume them from CompletedNodes/CurrentNodeID.
func (s *Store) ListIncompleteExecutions(ctx context.Context) ([]*domain.WorkflowExecution, error) {
	const q = `
		SELECT id, workflow_id, incident_id, definition, status, current_node_id,
			completed_nodes, started_at, completed_at, failed_at, error
		FROM workflow_executions WHERE status = 'RUNNING' ORDER BY started_at`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing incomplete executions: %w", err)
	}
	defer rows.Close()

	var out []*domain.WorkflowExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanExecution(row rowScanner) (*domain.WorkflowExecution, error) {
	var e domain.WorkflowExecution
	var currentNodeID *string
	err := row.Scan(
		&e.ID, &e.WorkflowID, &e.IncidentID, &e.Definition, &e.Status, &currentNodeID,
		&e.CompletedNodes, &e.StartedAt, &e.CompletedAt, &e.FailedAt, &e.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning workflow execution: %w", err)
	}
	if currentNodeID != nil {
		e.CurrentNodeID = *currentNodeID
	}
	return &e, nil
}
