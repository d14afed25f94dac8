package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateRunbook(ctx context.Context, r *domain.Runbook) error {
	const q = `
		INSERT INTO runbooks (
			id, name, description, url, method, headers, auth, param_schema,
			payload_template, timeout_seconds, team_id, version, approval_status,
			approver, approved_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := s.pool.Exec(ctx, q,
		r.ID, r.Name, r.Description, r.URL, r.Method, r.Headers, r.Auth, r.ParamSchema,
		r.PayloadTemplate, r.TimeoutSeconds, nullIfEmpty(r.TeamID), r.Version, r.ApprovalStatus,
		nullIfEmpty(r.Approver), r.ApprovedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating runbook: %w", err)
	}
	return nil
}

func (s *Store) GetRunbook(ctx context.Context, id string) (*domain.Runbook, error) {
	const q = runbookSelect + `WHERE id=$1`
	row := s.pool.QueryRow(ctx, q, id)
	r, err := scanRunbook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetRunbook", serr.KindNotFound, "runbook not found", serr.ErrRunbookNotFound)
	}
	return r, err
}

func (s *Store) ListRunbooks(ctx context.Context, teamID string) ([]*domain.Runbook, error) {
	q := runbookSelect + `WHERE team_id=$1 OR team_id IS NULL ORDER BY name`
	rows, err := s.pool.Query(ctx, q, nullIfEmpty(teamID))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing runbooks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Runbook
	for rows.Next() {
		r, err := scanRunbook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRunbook(ctx context.Context, r *domain.Runbook) error {
	const q = `
		UPDATE runbooks SET
			name=$2, description=$3, url=$4, method=$5, headers=$6, auth=$7, param_schema=$8,
			payload_template=$9, timeout_seconds=$10, version=$11, approval_status=$12,
			approver=$13, approved_at=$14, updated_at=$15
		WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q,
		r.ID, r.Name, r.Description, r.URL, r.Method, r.Headers, r.Auth, r.ParamSchema,
		r.PayloadTemplate, r.TimeoutSeconds, r.Version, r.ApprovalStatus,
		nullIfEmpty(r.Approver), r.ApprovedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating runbook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateRunbook", serr.KindNotFound, "runbook not found", serr.ErrRunbookNotFound).WithID(r.ID)
	}
	return nil
}

func (s *Store) SaveRunbookVersion(ctx context.Context, v *domain.RunbookVersion) error {
	const q = `
		INSERT INTO runbook_versions (runbook_id, version, definition, change_note, changed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q, v.RunbookID, v.Version, v.Definition, v.ChangeNote, v.ChangedBy, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving runbook version: %w", err)
	}
	return nil
}

func (s *Store) GetRunbookVersion(ctx context.Context, runbookID string, version int) (*domain.RunbookVersion, error) {
	const q = `
		SELECT runbook_id, version, definition, change_note, changed_by, created_at
		FROM runbook_versions WHERE runbook_id=$1 AND version=$2`
	row := s.pool.QueryRow(ctx, q, runbookID, version)
	v, err := scanRunbookVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetRunbookVersion", serr.KindNotFound, "runbook version not found", serr.ErrRunbookNotFound)
	}
	return v, err
}

func (s *Store) ListRunbookVersions(ctx context.Context, runbookID string) ([]*domain.RunbookVersion, error) {
	const q = `
		SELECT runbook_id, version, definition, change_note, changed_by, created_at
		FROM runbook_versions WHERE runbook_id=$1 ORDER BY version DESC`
	rows, err := s.pool.Query(ctx, q, runbookID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing runbook versions: %w", err)
	}
	defer rows.Close()

	var out []*domain.RunbookVersion
	for rows.Next() {
		v, err := scanRunbookVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// HasRunningRunbookExecution reports whether the runbook has an
// execution in PENDING or RUNNING state, used to serialize manual
// re-triggers of the same runbook.
func (s *Store) HasRunningRunbookExecution(ctx context.Context, runbookID string) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM runbook_executions
			WHERE runbook_id=$1 AND status IN ('PENDING','RUNNING')
		)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, runbookID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: checking running runbook execution: %w", err)
	}
	return exists, nil
}

const runbookSelect = `
	SELECT id, name, description, url, method, headers, auth, param_schema,
		payload_template, timeout_seconds, team_id, version, approval_status,
		approver, approved_at, created_at, updated_at
	FROM runbooks `

func scanRunbook(row rowScanner) (*domain.Runbook, error) {
	var r domain.Runbook
	var teamID, approver *string
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.URL, &r.Method, &r.Headers, &r.Auth, &r.ParamSchema,
		&r.PayloadTemplate, &r.TimeoutSeconds, &teamID, &r.Version, &r.ApprovalStatus,
		&approver, &r.ApprovedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning runbook: %w", err)
	}
	if teamID != nil {
		r.TeamID = *teamID
	}
	if approver != nil {
		r.Approver = *approver
	}
	return &r, nil
}

func scanRunbookVersion(row rowScanner) (*domain.RunbookVersion, error) {
	var v domain.RunbookVersion
	err := row.Scan(&v.RunbookID, &v.Version, &v.Definition, &v.ChangeNote, &v.ChangedBy, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning runbook version: %w", err)
	}
	return &v, nil
}
