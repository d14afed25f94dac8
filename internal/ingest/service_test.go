package ingest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/incident"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/ratelimit"
	"github.com/onwatch/sentinel/internal/signature"
	"github.com/onwatch/sentinel/internal/store/memstore"
	"github.com/onwatch/sentinel/internal/workflow"
	"github.com/onwatch/sentinel/pkg/logger"
)

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, key string) (bool, int, error) { return true, 0, nil }

type denyLimiter struct{ retryAfter int }

func (d denyLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	return false, d.retryAfter, nil
}

func testIntegration() *domain.Integration {
	return &domain.Integration{
		ID:               "integ-1",
		Name:             "datadog-prod",
		Provider:         domain.ProviderGeneric,
		TeamID:           "team-a",
		SigningSecret:    []byte("shh"),
		SignatureHeader:  "X-Signature",
		Algorithm:        domain.AlgoSHA256,
		Format:           domain.FormatHex,
		Active:           true,
		DedupWindowMin:   15,
		DefaultServiceID: "checkout",
	}
}

func newTestService(t *testing.T, limiter ratelimit.Limiter) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()

	integ := testIntegration()
	require.NoError(t, st.CreateIntegration(context.Background(), integ))
	require.NoError(t, st.CreateEscalationPolicy(context.Background(), &domain.EscalationPolicy{
		ID: "pol-1", TeamID: "team-a", Name: "default", IsDefault: true,
		Levels: []domain.EscalationLevel{{Number: 1, TimeoutMin: 15}},
	}))

	q := queue.NewMemQueue()
	scheduler := escalation.NewScheduler(q)
	svc := NewService(
		st, st, st,
		incident.New(st, scheduler),
		scheduler,
		workflow.NewDispatcher(st, st, queue.NewMemQueue()),
		limiter,
		audit.New(st),
		signature.NewVerifier(),
		logger.NewSimpleLogger(),
	)
	return svc, st
}

func signatureHex(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(t *testing.T, integ *domain.Integration, body []byte) http.Header {
	t.Helper()
	h := http.Header{}
	h.Set("X-Signature", signatureHex(integ.SigningSecret, body))
	return h
}

func TestProcessCreatesIncidentOnFirstAlert(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	result, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.NoError(t, err)
	assert.Equal(t, "created", result.Status)
	assert.NotEmpty(t, result.IncidentID)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
}

func TestProcessGroupsSecondMatchingAlert(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	first, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.NoError(t, err)

	body2 := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:05:00Z"}`)
	headers2 := signedRequest(t, integ, body2)
	second, err := svc.Process(context.Background(), integ.Name, body2, headers2)
	require.NoError(t, err)

	assert.Equal(t, "grouped", second.Status)
	assert.Equal(t, first.IncidentID, second.IncidentID)
}

func TestProcessReturnsDuplicateOnRepeatedIdempotencyKey(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)
	headers.Set("Idempotency-Key", "key-1")

	first, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.NoError(t, err)

	second, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", second.Status)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.AlertID, second.AlertID)
}

func TestProcessRejectsUnsignedRequest(t *testing.T) {
	svc, st := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)

	_, err := svc.Process(context.Background(), integ.Name, body, http.Header{})
	assert.Error(t, err)

	events, err := audit.New(st).List(context.Background(), "team-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "webhook.signature_rejected", events[0].Action)
	assert.Equal(t, domain.AuditHigh, events[0].Severity)
}

func TestProcessRejectsUnknownIntegration(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	_, err := svc.Process(context.Background(), "does-not-exist", []byte(`{}`), http.Header{})
	assert.Error(t, err)
}

func TestProcessReturnsValidationErrorOnMalformedAlert(t *testing.T) {
	svc, st := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	_, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	events, err := audit.New(st).List(context.Background(), "team-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "alert.validation_failed", events[0].Action)
}

func TestProcessReturnsRateLimitError(t *testing.T) {
	svc, _ := newTestService(t, denyLimiter{retryAfter: 5})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	_, err := svc.Process(context.Background(), integ.Name, body, headers)
	require.Error(t, err)
	var re *RateLimitError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 5, re.RetryAfter)
}
