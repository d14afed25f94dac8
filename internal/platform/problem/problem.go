// Package problem renders internal errors as RFC 7807 Problem Details
// JSON responses, mapping the internal error Kind taxonomy onto HTTP
// status codes and stable type slugs.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

// Details mirrors the application/problem+json fields from RFC 7807.
type Details struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

type mapping struct {
	status int
	slug   string
	title  string
}

var kindMappings = map[serr.Kind]mapping{
	serr.KindSignature:  {http.StatusUnauthorized, "signature-invalid", "Signature verification failed"},
	serr.KindValidation: {http.StatusBadRequest, "validation-failed", "Request validation failed"},
	serr.KindNotFound:   {http.StatusNotFound, "not-found", "Resource not found"},
	serr.KindConflict:   {http.StatusConflict, "conflict", "Request conflicts with current state"},
	serr.KindPermission: {http.StatusForbidden, "permission-denied", "Permission denied"},
	serr.KindRateLimit:  {http.StatusTooManyRequests, "rate-limited", "Rate limit exceeded"},
	serr.KindDownstream: {http.StatusBadGateway, "downstream-error", "A downstream dependency failed"},
	serr.KindInternal:   {http.StatusInternalServerError, "internal-error", "Internal server error"},
}

const typeBaseURL = "https://sentinel.onwatch.dev/problems/"

// FromError maps err to RFC 7807 Details, defaulting to an internal
// server error for unrecognized error kinds.
func FromError(err error, instance string) Details {
	kind := serr.KindOf(err)
	m, ok := kindMappings[kind]
	if !ok {
		m = kindMappings[serr.KindInternal]
	}

	detail := ""
	var se *serr.SentinelError
	if errors.As(err, &se) {
		detail = se.Message
	} else if err != nil {
		detail = err.Error()
	}

	return Details{
		Type:     typeBaseURL + m.slug,
		Title:    m.title,
		Status:   m.status,
		Detail:   detail,
		Instance: instance,
	}
}

// Write encodes err as a Problem Details response onto w, setting the
// correct status code and content type.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	d := FromError(err, r.URL.Path)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}
