package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error {
	const q = `
		INSERT INTO escalation_policies (id, team_id, name, levels, repeat_count, is_default)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, q, p.ID, p.TeamID, p.Name, p.Levels, p.RepeatCount, p.IsDefault)
	if err != nil {
		return fmt.Errorf("postgres: creating escalation policy: %w", err)
	}
	return nil
}

func (s *Store) GetEscalationPolicy(ctx context.Context, id string) (*domain.EscalationPolicy, error) {
	return s.scanPolicy(ctx, `WHERE id=$1`, id)
}

func (s *Store) GetDefaultEscalationPolicyForTeam(ctx context.Context, teamID string) (*domain.EscalationPolicy, error) {
	return s.scanPolicy(ctx, `WHERE team_id=$1 AND is_default LIMIT 1`, teamID)
}

func (s *Store) scanPolicy(ctx context.Context, where string, arg interface{}) (*domain.EscalationPolicy, error) {
	q := `SELECT id, team_id, name, levels, repeat_count, is_default FROM escalation_policies ` + where
	row := s.pool.QueryRow(ctx, q, arg)
	var p domain.EscalationPolicy
	err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.Levels, &p.RepeatCount, &p.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetEscalationPolicy", serr.KindNotFound, "escalation policy not found", serr.ErrEscalationPolicyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning escalation policy: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateEscalationPolicy(ctx context.Context, p *domain.EscalationPolicy) error {
	const q = `UPDATE escalation_policies SET name=$2, levels=$3, repeat_count=$4, is_default=$5 WHERE id=$1`
	tag, err := s.pool.Exec(ctx, q, p.ID, p.Name, p.Levels, p.RepeatCount, p.IsDefault)
	if err != nil {
		return fmt.Errorf("postgres: updating escalation policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateEscalationPolicy", serr.KindNotFound, "escalation policy not found", serr.ErrEscalationPolicyNotFound).WithID(p.ID)
	}
	return nil
}
