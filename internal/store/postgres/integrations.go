package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

func (s *Store) CreateIntegration(ctx context.Context, integ *domain.Integration) error {
	const q = `
		INSERT INTO integrations (
			id, name, provider, team_id, signing_secret, signature_header, algorithm,
			format, prefix, timestamp_header, max_age_seconds, dedup_window_min,
			active, default_service_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := s.pool.Exec(ctx, q,
		integ.ID, integ.Name, integ.Provider, integ.TeamID, integ.SigningSecret, integ.SignatureHeader,
		integ.Algorithm, integ.Format, integ.Prefix, integ.TimestampHeader, integ.MaxAgeSeconds,
		integ.DedupWindowMin, integ.Active, integ.DefaultServiceID, integ.CreatedAt, integ.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return serr.New("postgres.CreateIntegration", serr.KindConflict, "integration name already exists", serr.ErrDuplicateIntegrationName)
	}
	if err != nil {
		return fmt.Errorf("postgres: creating integration: %w", err)
	}
	return nil
}

func (s *Store) GetIntegration(ctx context.Context, id string) (*domain.Integration, error) {
	return s.scanIntegration(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetIntegrationByName(ctx context.Context, name string) (*domain.Integration, error) {
	return s.scanIntegration(ctx, `WHERE name = $1`, name)
}

func (s *Store) scanIntegration(ctx context.Context, where string, arg interface{}) (*domain.Integration, error) {
	q := `
		SELECT id, name, provider, team_id, signing_secret, signature_header, algorithm,
			format, prefix, timestamp_header, max_age_seconds, dedup_window_min,
			active, default_service_id, created_at, updated_at
		FROM integrations ` + where

	row := s.pool.QueryRow(ctx, q, arg)
	var integ domain.Integration
	err := row.Scan(
		&integ.ID, &integ.Name, &integ.Provider, &integ.TeamID, &integ.SigningSecret, &integ.SignatureHeader,
		&integ.Algorithm, &integ.Format, &integ.Prefix, &integ.TimestampHeader, &integ.MaxAgeSeconds,
		&integ.DedupWindowMin, &integ.Active, &integ.DefaultServiceID, &integ.CreatedAt, &integ.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serr.New("postgres.GetIntegration", serr.KindNotFound, "integration not found", serr.ErrIntegrationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning integration: %w", err)
	}
	return &integ, nil
}

func (s *Store) ListIntegrations(ctx context.Context) ([]*domain.Integration, error) {
	const q = `
		SELECT id, name, provider, team_id, signing_secret, signature_header, algorithm,
			format, prefix, timestamp_header, max_age_seconds, dedup_window_min,
			active, default_service_id, created_at, updated_at
		FROM integrations ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing integrations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Integration
	for rows.Next() {
		var integ domain.Integration
		if err := rows.Scan(
			&integ.ID, &integ.Name, &integ.Provider, &integ.TeamID, &integ.SigningSecret, &integ.SignatureHeader,
			&integ.Algorithm, &integ.Format, &integ.Prefix, &integ.TimestampHeader, &integ.MaxAgeSeconds,
			&integ.DedupWindowMin, &integ.Active, &integ.DefaultServiceID, &integ.CreatedAt, &integ.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning integration row: %w", err)
		}
		out = append(out, &integ)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIntegration(ctx context.Context, integ *domain.Integration) error {
	const q = `
		UPDATE integrations SET
			name=$2, provider=$3, team_id=$4, signature_header=$5, algorithm=$6, format=$7,
			prefix=$8, timestamp_header=$9, max_age_seconds=$10, dedup_window_min=$11,
			active=$12, default_service_id=$13, updated_at=$14
		WHERE id=$1`

	tag, err := s.pool.Exec(ctx, q,
		integ.ID, integ.Name, integ.Provider, integ.TeamID, integ.SignatureHeader, integ.Algorithm, integ.Format,
		integ.Prefix, integ.TimestampHeader, integ.MaxAgeSeconds, integ.DedupWindowMin,
		integ.Active, integ.DefaultServiceID, integ.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating integration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return serr.New("postgres.UpdateIntegration", serr.KindNotFound, "integration not found", serr.ErrIntegrationNotFound).WithID(integ.ID)
	}
	return nil
}

func (s *Store) DeleteIntegration(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM integrations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting integration: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), e.g. a duplicate integration name.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
