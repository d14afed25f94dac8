package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/store/memstore"
)

func TestIntegrationCreateReturnsSecretOnceAndListRedacts(t *testing.T) {
	st := memstore.New()
	mux := http.NewServeMux()
	RegisterIntegrationRoutes(mux, st, nil)

	body := `{"name":"datadog-prod","provider":"generic","team_id":"team-a","signature_header":"X-Signature","algorithm":"sha256","format":"hex"}`
	req := httptest.NewRequest(http.MethodPost, "/integrations", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created["signing_secret"])

	listReq := httptest.NewRequest(http.MethodGet, "/integrations", nil)
	listRR := httptest.NewRecorder()
	mux.ServeHTTP(listRR, listReq)
	require.Equal(t, http.StatusOK, listRR.Code)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(listRR.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "signing_secret")
	assert.Len(t, list[0]["secret_prefix"], 8)
}

func TestIntegrationRotateSecretReturnsNewSecret(t *testing.T) {
	st := memstore.New()
	mux := http.NewServeMux()
	RegisterIntegrationRoutes(mux, st, nil)

	body := `{"name":"datadog-prod","provider":"generic","team_id":"team-a","signature_header":"X-Signature","algorithm":"sha256","format":"hex"}`
	createReq := httptest.NewRequest(http.MethodPost, "/integrations", strings.NewReader(body))
	createRR := httptest.NewRecorder()
	mux.ServeHTTP(createRR, createReq)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRR.Body.Bytes(), &created))
	id := created["id"].(string)
	oldSecret := created["signing_secret"].(string)

	rotateReq := httptest.NewRequest(http.MethodPost, "/integrations/"+id+"/rotate-secret", nil)
	rotateRR := httptest.NewRecorder()
	mux.ServeHTTP(rotateRR, rotateReq)
	require.Equal(t, http.StatusOK, rotateRR.Code)

	var rotated map[string]interface{}
	require.NoError(t, json.Unmarshal(rotateRR.Body.Bytes(), &rotated))
	assert.NotEqual(t, oldSecret, rotated["signing_secret"])
}
