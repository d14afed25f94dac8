package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error {
	const q = `
		INSERT INTO runbook_executions (
			id, runbook_id, parameters, triggered_by, status, status_code,
			result, error, started_at, duration_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.RunbookID, e.Parameters, e.TriggeredBy, e.Status, e.StatusCode,
		e.Result, e.Error, e.StartedAt, e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: creating runbook execution: %w", err)
	}
	return nil
}

func (s *Store) UpdateRunbookExecution(ctx context.Context, e *domain.RunbookExecution) error {
	const q = `
		UPDATE runbook_executions SET
			status=$2, status_code=$3, result=$4, error=$5, duration_ms=$6
		WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q, e.ID, e.Status, e.StatusCode, e.Result, e.Error, e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("postgres: updating runbook execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateRunbookExecution", serr.KindNotFound, "runbook execution not found", serr.ErrRunbookNotFound).WithID(e.ID)
	}
	return nil
}

func (s *Store) GetRunbookExecution(ctx context.Context, id string) (*domain.RunbookExecution, error) {
	const q = `
		SELECT id, runbook_id, parameters, triggered_by, status, status_code,
			result, error, started_at, duration_ms
		FROM runbook_executions WHERE id=$1`
	row := s.pool.QueryRow(ctx, q, id)
	var e domain.RunbookExecution
	var durationMS int64
	err := row.Scan(
		&e.ID, &e.RunbookID, &e.Parameters, &e.TriggeredBy, &e.Status, &e.StatusCode,
		&e.Result, &e.Error, &e.StartedAt, &durationMS,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetRunbookExecution", serr.KindNotFound, "runbook execution not found", serr.ErrRunbookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning runbook execution: %w", err)
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return &e, nil
}
