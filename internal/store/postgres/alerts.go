package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateAlert(ctx context.Context, a *domain.Alert) error {
	const q = `
		INSERT INTO alerts (
			id, title, description, severity, status, source, external_id,
			triggered_at, metadata, integration_id, incident_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := s.pool.Exec(ctx, q,
		a.ID, a.Title, a.Description, a.Severity, a.Status, a.Source, a.ExternalID,
		a.TriggeredAt, a.Metadata, a.IntegrationID, nullIfEmpty(a.IncidentID),
	)
	if err != nil {
		return fmt.Errorf("postgres: creating alert: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	const q = `
		SELECT id, title, description, severity, status, source, external_id,
			triggered_at, metadata, integration_id, incident_id
		FROM alerts WHERE id=$1`

	row := s.pool.QueryRow(ctx, q, id)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetAlert", serr.KindNotFound, "alert not found", nil).WithID(id)
	}
	return a, err
}

func (s *Store) ListAlertsByIncident(ctx context.Context, incidentID string) ([]*domain.Alert, error) {
	const q = `
		SELECT id, title, description, severity, status, source, external_id,
			triggered_at, metadata, integration_id, incident_id
		FROM alerts WHERE incident_id=$1 ORDER BY triggered_at`

	rows, err := s.pool.Query(ctx, q, incidentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing alerts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAlert(ctx context.Context, a *domain.Alert) error {
	const q = `
		UPDATE alerts SET status=$2, metadata=$3, incident_id=$4 WHERE id=$1`
	_, err := s.pool.Exec(ctx, q, a.ID, a.Status, a.Metadata, nullIfEmpty(a.IncidentID))
	if err != nil {
		return fmt.Errorf("postgres: updating alert: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var a domain.Alert
	var incidentID *string
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Severity, &a.Status, &a.Source, &a.ExternalID,
		&a.TriggeredAt, &a.Metadata, &a.IntegrationID, &incidentID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning alert: %w", err)
	}
	if incidentID != nil {
		a.IncidentID = *incidentID
	}
	return &a, nil
}
