package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/store"
)

// queryer is the subset of pgxpool.Pool / pgx.Tx the incident
// repository needs, letting the same code run directly against the
// pool or inside WithIncidentTx's transaction.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *Store) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	return createIncident(ctx, s.pool, inc)
}

func createIncident(ctx context.Context, q queryer, inc *domain.Incident) error {
	const stmt = `
		INSERT INTO incidents (
			id, fingerprint, priority, status, team_id, assigned_user_id, current_level,
			escalation_policy_id, alert_count, created_at, acknowledged_at, resolved_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := q.Exec(ctx, stmt,
		inc.ID, inc.Fingerprint, inc.Priority, inc.Status, inc.TeamID, nullIfEmpty(inc.AssignedUserID),
		inc.CurrentLevel, inc.EscalationPolicyID, inc.AlertCount, inc.CreatedAt, inc.AcknowledgedAt, inc.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating incident: %w", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return getIncident(ctx, s.pool, `WHERE id=$1`, id)
}

func getIncident(ctx context.Context, q queryer, where string, args ...interface{}) (*domain.Incident, error) {
	stmt := `
		SELECT id, fingerprint, priority, status, team_id, assigned_user_id, current_level,
			escalation_policy_id, alert_count, created_at, acknowledged_at, resolved_at
		FROM incidents ` + where

	row := q.QueryRow(ctx, stmt, args...)
	var inc domain.Incident
	var assignedUserID *string
	err := row.Scan(
		&inc.ID, &inc.Fingerprint, &inc.Priority, &inc.Status, &inc.TeamID, &assignedUserID,
		&inc.CurrentLevel, &inc.EscalationPolicyID, &inc.AlertCount, &inc.CreatedAt, &inc.AcknowledgedAt, &inc.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetIncident", serr.KindNotFound, "incident not found", serr.ErrIncidentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning incident: %w", err)
	}
	if assignedUserID != nil {
		inc.AssignedUserID = *assignedUserID
	}
	return &inc, nil
}

func (s *Store) UpdateIncident(ctx context.Context, inc *domain.Incident) error {
	return updateIncident(ctx, s.pool, inc)
}

func updateIncident(ctx context.Context, q queryer, inc *domain.Incident) error {
	const stmt = `
		UPDATE incidents SET
			status=$2, assigned_user_id=$3, current_level=$4, alert_count=$5,
			acknowledged_at=$6, resolved_at=$7
		WHERE id=$1`
	tag, err := q.Exec(ctx, stmt, inc.ID, inc.Status, nullIfEmpty(inc.AssignedUserID),
		inc.CurrentLevel, inc.AlertCount, inc.AcknowledgedAt, inc.ResolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: updating incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateIncident", serr.KindNotFound, "incident not found", serr.ErrIncidentNotFound).WithID(inc.ID)
	}
	return nil
}

// FindOpenIncidentByFingerprint row-locks the matching open incident
// (FOR UPDATE) so concurrent deliveries for the same fingerprint
// serialize on it rather than both creating a new incident. Only
// meaningful inside WithIncidentTx; called directly it still works,
// but the lock is released as soon as the implicit statement ends.
func (s *Store) FindOpenIncidentByFingerprint(ctx context.Context, teamID, fingerprint string, within time.Duration) (*domain.Incident, error) {
	return findOpenIncidentByFingerprint(ctx, s.pool, teamID, fingerprint, within)
}

func findOpenIncidentByFingerprint(ctx context.Context, q queryer, teamID, fingerprint string, within time.Duration) (*domain.Incident, error) {
	const stmt = `
		SELECT id, fingerprint, priority, status, team_id, assigned_user_id, current_level,
			escalation_policy_id, alert_count, created_at, acknowledged_at, resolved_at
		FROM incidents
		WHERE team_id=$1 AND fingerprint=$2 AND status <> 'RESOLVED' AND created_at > $3
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`

	row := q.QueryRow(ctx, stmt, teamID, fingerprint, time.Now().Add(-within))
	var inc domain.Incident
	var assignedUserID *string
	err := row.Scan(
		&inc.ID, &inc.Fingerprint, &inc.Priority, &inc.Status, &inc.TeamID, &assignedUserID,
		&inc.CurrentLevel, &inc.EscalationPolicyID, &inc.AlertCount, &inc.CreatedAt, &inc.AcknowledgedAt, &inc.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning incident: %w", err)
	}
	if assignedUserID != nil {
		inc.AssignedUserID = *assignedUserID
	}
	return &inc, nil
}

// WithIncidentTx opens a Postgres transaction and runs fn against a
// txIncidentStore bound to it, so FindOpenIncidentByFingerprint's row
// lock and the subsequent create-or-update happen atomically.
func (s *Store) WithIncidentTx(ctx context.Context, fn func(ctx context.Context, txStore store.IncidentStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txIncidentStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txIncidentStore struct {
	tx pgx.Tx
}

func (t *txIncidentStore) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	return createIncident(ctx, t.tx, inc)
}

func (t *txIncidentStore) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return getIncident(ctx, t.tx, `WHERE id=$1`, id)
}

func (t *txIncidentStore) UpdateIncident(ctx context.Context, inc *domain.Incident) error {
	return updateIncident(ctx, t.tx, inc)
}

func (t *txIncidentStore) FindOpenIncidentByFingerprint(ctx context.Context, teamID, fingerprint string, within time.Duration) (*domain.Incident, error) {
	return findOpenIncidentByFingerprint(ctx, t.tx, teamID, fingerprint, within)
}

func (t *txIncidentStore) WithIncidentTx(ctx context.Context, fn func(ctx context.Context, txStore store.IncidentStore) error) error {
	return fn(ctx, t)
}
