package ingest

import (
	"net/http"
	"strings"
)

// idempotencyHeaders is checked in order; the first header present wins.
// Per spec.md §4.3.
var idempotencyHeaders = []string{
	"Idempotency-Key",
	"X-Idempotency-Key",
	"X-Delivery-Id",
	"X-Request-Id",
	"X-Github-Delivery",
	"X-Datadog-Delivery-Id",
	"X-Trace-Id",
}

// ExtractIdempotencyKey returns the first populated header from
// idempotencyHeaders, or "" if none are set.
func ExtractIdempotencyKey(h http.Header) string {
	for _, name := range idempotencyHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

var exactSensitiveHeaders = map[string]bool{
	"authorization":    true,
	"x-webhook-secret": true,
	"x-api-key":        true,
	"cookie":           true,
}

// SanitizeHeaders redacts secret-shaped header values before persistence,
// per spec.md §5: authorization, x-webhook-secret, x-api-key, cookie, and
// any x-*-token or x-*-signature header.
func SanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		lower := strings.ToLower(name)
		joined := strings.Join(values, ", ")
		if isSensitiveHeader(lower) {
			joined = "[REDACTED]"
		}
		out[lower] = joined
	}
	return out
}

func isSensitiveHeader(lower string) bool {
	if exactSensitiveHeaders[lower] {
		return true
	}
	if strings.HasPrefix(lower, "x-") && (strings.HasSuffix(lower, "-token") || strings.HasSuffix(lower, "-signature")) {
		return true
	}
	return false
}
