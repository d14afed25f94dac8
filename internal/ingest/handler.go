package ingest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/onwatch/sentinel/internal/platform/problem"
)

// maxBodyBytes bounds how much of a webhook body is read before the
// request is rejected; providers do not send multi-megabyte alerts.
const maxBodyBytes = 1 << 20

// RegisterRoutes mounts the webhook ingestion endpoints on mux, per
// spec.md §6.
func RegisterRoutes(mux *http.ServeMux, svc *Service) {
	mux.HandleFunc("POST /webhooks/alerts/{integrationName}", svc.handleIngest)
	mux.HandleFunc("GET /webhooks/alerts/{integrationName}/test", handleTest)
}

func handleTest(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleIngest(w http.ResponseWriter, r *http.Request) {
	integrationName := r.PathValue("integrationName")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		problem.Write(w, r, err)
		return
	}
	if len(body) > maxBodyBytes {
		writeValidationProblem(w, r, []string{"request body exceeds maximum size"})
		return
	}

	result, err := s.Process(r.Context(), integrationName, body, r.Header)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == "duplicate" {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alert_id":   result.AlertID,
			"status":     result.Status,
			"idempotent": result.Idempotent,
		})
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"alert_id":     result.AlertID,
		"incident_id":  result.IncidentID,
		"status":       result.Status,
		"title":        result.Title,
		"severity":     result.Severity,
		"triggered_at": result.TriggeredAt,
	})
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeValidationProblem(w, r, ve.Errors)
		return
	}

	var re *RateLimitError
	if errors.As(err, &re) {
		d := problem.FromError(err, r.URL.Path)
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"type":        "https://sentinel.onwatch.dev/problems/rate-limited",
			"title":       "Rate limit exceeded",
			"status":      http.StatusTooManyRequests,
			"detail":      d.Detail,
			"instance":    r.URL.Path,
			"retry_after": re.RetryAfter,
		})
		return
	}

	problem.Write(w, r, err)
}

func writeValidationProblem(w http.ResponseWriter, r *http.Request, validationErrors []string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":              "https://sentinel.onwatch.dev/problems/validation-failed",
		"title":             "Request validation failed",
		"status":            http.StatusBadRequest,
		"instance":          r.URL.Path,
		"validation_errors": validationErrors,
	})
}
