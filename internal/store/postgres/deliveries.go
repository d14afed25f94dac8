package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onwatch/sentinel/internal/domain"
)

func (s *Store) CreateDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	const q = `
		INSERT INTO webhook_deliveries (
			id, integration_id, idempotency_key, content_fingerprint, raw_payload,
			sanitized_headers, http_status, error_message, processed_at, alert_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := s.pool.Exec(ctx, q,
		d.ID, d.IntegrationID, nullIfEmpty(d.IdempotencyKey), d.ContentFingerprint, d.RawPayload,
		d.SanitizedHeaders, d.HTTPStatus, d.ErrorMessage, d.ProcessedAt, nullIfEmpty(d.AlertID),
	)
	if err != nil {
		return fmt.Errorf("postgres: creating delivery: %w", err)
	}
	return nil
}

func (s *Store) FindDeliveryByIdempotencyKey(ctx context.Context, integrationID, key string) (*domain.WebhookDelivery, error) {
	const q = `
		SELECT id, integration_id, idempotency_key, content_fingerprint, raw_payload,
			sanitized_headers, http_status, error_message, processed_at, alert_id
		FROM webhook_deliveries
		WHERE integration_id=$1 AND idempotency_key=$2
		ORDER BY processed_at DESC LIMIT 1`
	return s.scanDelivery(ctx, q, integrationID, key)
}

func (s *Store) FindDeliveryByFingerprint(ctx context.Context, integrationID, fingerprint string, within time.Duration) (*domain.WebhookDelivery, error) {
	const q = `
		SELECT id, integration_id, idempotency_key, content_fingerprint, raw_payload,
			sanitized_headers, http_status, error_message, processed_at, alert_id
		FROM webhook_deliveries
		WHERE integration_id=$1 AND content_fingerprint=$2 AND processed_at > $3
		ORDER BY processed_at DESC LIMIT 1`
	return s.scanDelivery(ctx, q, integrationID, fingerprint, time.Now().Add(-within))
}

func (s *Store) scanDelivery(ctx context.Context, q string, args ...interface{}) (*domain.WebhookDelivery, error) {
	row := s.pool.QueryRow(ctx, q, args...)
	var d domain.WebhookDelivery
	var idempotencyKey, alertID *string
	err := row.Scan(
		&d.ID, &d.IntegrationID, &idempotencyKey, &d.ContentFingerprint, &d.RawPayload,
		&d.SanitizedHeaders, &d.HTTPStatus, &d.ErrorMessage, &d.ProcessedAt, &alertID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning delivery: %w", err)
	}
	if idempotencyKey != nil {
		d.IdempotencyKey = *idempotencyKey
	}
	if alertID != nil {
		d.AlertID = *alertID
	}
	return &d, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
