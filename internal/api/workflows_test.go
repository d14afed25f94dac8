package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/store/memstore"
	"github.com/onwatch/sentinel/internal/workflow"
)

func newWorkflowMux(t *testing.T) (*http.ServeMux, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	mgr := workflow.NewManager(st)
	dispatcher := workflow.NewDispatcher(st, st, queue.NewMemQueue())
	mux := http.NewServeMux()
	RegisterWorkflowRoutes(mux, mgr, st, dispatcher, nil)
	return mux, st
}

func TestWorkflowCreateAndToggle(t *testing.T) {
	mux, _ := newWorkflowMux(t)

	body := `{"name":"w1","team_id":"team-a","scope":"team","definition":{"nodes":[],"edges":[]}}`
	createReq := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(body))
	createRR := httptest.NewRecorder()
	mux.ServeHTTP(createRR, createReq)
	require.Equal(t, http.StatusCreated, createRR.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRR.Body.Bytes(), &created))
	id := created["ID"].(string)

	toggleBody := `{"enabled":true,"expected_version":1}`
	toggleReq := httptest.NewRequest(http.MethodPost, "/workflows/"+id+"/toggle", strings.NewReader(toggleBody))
	toggleRR := httptest.NewRecorder()
	mux.ServeHTTP(toggleRR, toggleReq)
	require.Equal(t, http.StatusOK, toggleRR.Code)

	var toggled map[string]interface{}
	require.NoError(t, json.Unmarshal(toggleRR.Body.Bytes(), &toggled))
	assert.Equal(t, true, toggled["Enabled"])
}

func TestWorkflowToggleRejectsStaleVersion(t *testing.T) {
	mux, _ := newWorkflowMux(t)

	body := `{"name":"w1","team_id":"team-a","scope":"team","definition":{"nodes":[],"edges":[]}}`
	createReq := httptest.NewRequest(http.MethodPost, "/workflows", strings.NewReader(body))
	createRR := httptest.NewRecorder()
	mux.ServeHTTP(createRR, createReq)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRR.Body.Bytes(), &created))
	id := created["ID"].(string)

	toggleBody := `{"enabled":true,"expected_version":99}`
	toggleReq := httptest.NewRequest(http.MethodPost, "/workflows/"+id+"/toggle", strings.NewReader(toggleBody))
	toggleRR := httptest.NewRecorder()
	mux.ServeHTTP(toggleRR, toggleReq)
	assert.Equal(t, http.StatusConflict, toggleRR.Code)
}
