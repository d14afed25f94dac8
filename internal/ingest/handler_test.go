package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleIngestReturns201OnNewIncident(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alerts/"+integ.Name, strings.NewReader(string(body)))
	req.Header = headers
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "created", out["status"])
	assert.NotEmpty(t, out["incident_id"])
}

func TestHandleIngestReturns404ForUnknownIntegration(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alerts/nope", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleIngestReturns400OnValidationFailure(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	integ := testIntegration()
	body := []byte(`{"severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alerts/"+integ.Name, strings.NewReader(string(body)))
	req.Header = headers
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.NotEmpty(t, out["validation_errors"])
}

func TestHandleIngestReturns429WhenRateLimited(t *testing.T) {
	svc, _ := newTestService(t, denyLimiter{retryAfter: 7})
	integ := testIntegration()
	body := []byte(`{"title":"disk full","severity":"critical","timestamp":"2025-01-10T00:00:00Z"}`)
	headers := signedRequest(t, integ, body)

	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alerts/"+integ.Name, strings.NewReader(string(body)))
	req.Header = headers
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, float64(7), out["retry_after"])
}

func TestHandleTestEndpointReturns200(t *testing.T) {
	svc, _ := newTestService(t, allowAllLimiter{})
	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/alerts/whatever/test", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
