package ingest

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIdempotencyKeyPrefersFirstHeaderInPrecedenceOrder(t *testing.T) {
	h := http.Header{}
	h.Set("X-Request-Id", "req-1")
	h.Set("X-Idempotency-Key", "idem-1")
	assert.Equal(t, "idem-1", ExtractIdempotencyKey(h))
}

func TestExtractIdempotencyKeyFallsBackThroughList(t *testing.T) {
	h := http.Header{}
	h.Set("X-Github-Delivery", "gh-1")
	assert.Equal(t, "gh-1", ExtractIdempotencyKey(h))
}

func TestExtractIdempotencyKeyEmptyWhenNoneSet(t *testing.T) {
	assert.Equal(t, "", ExtractIdempotencyKey(http.Header{}))
}

func TestSanitizeHeadersRedactsSecrets(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("X-Webhook-Secret", "shh")
	h.Set("X-Api-Key", "key-1")
	h.Set("Cookie", "session=abc")
	h.Set("X-Slack-Token", "xoxb-1")
	h.Set("Content-Type", "application/json")

	out := SanitizeHeaders(h)
	assert.Equal(t, "[REDACTED]", out["authorization"])
	assert.Equal(t, "[REDACTED]", out["x-webhook-secret"])
	assert.Equal(t, "[REDACTED]", out["x-api-key"])
	assert.Equal(t, "[REDACTED]", out["cookie"])
	assert.Equal(t, "[REDACTED]", out["x-slack-token"])
	assert.Equal(t, "application/json", out["content-type"])
}
