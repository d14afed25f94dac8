package postgres

import (
	"context"
	"fmt"

	"github.com/onwatch/sentinel/internal/domain"
)

func (s *Store) AppendAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	const q = `
		INSERT INTO audit_events (
			id, action, actor, team_id, resource_type, resource_id, metadata, severity, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, q,
		ev.ID, ev.Action, ev.Actor, nullIfEmpty(ev.TeamID), ev.ResourceType, ev.ResourceID,
		ev.Metadata, ev.Severity, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: appending audit event: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEvents(ctx context.Context, teamID string, limit int) ([]*domain.AuditEvent, error) {
	const q = `
		SELECT id, action, actor, team_id, resource_type, resource_id, metadata, severity, created_at
		FROM audit_events
		WHERE team_id=$1 OR $1 = ''
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, q, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing audit events: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var rowTeamID *string
		if err := rows.Scan(
			&ev.ID, &ev.Action, &ev.Actor, &rowTeamID, &ev.ResourceType, &ev.ResourceID,
			&ev.Metadata, &ev.Severity, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning audit event: %w", err)
		}
		if rowTeamID != nil {
			ev.TeamID = *rowTeamID
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
