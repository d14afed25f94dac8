package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/escalation"
	"github.com/onwatch/sentinel/internal/incident"
	"github.com/onwatch/sentinel/internal/queue"
	"github.com/onwatch/sentinel/internal/store/memstore"
)

func TestIncidentAcknowledgeCancelsEscalationAndRecordsAudit(t *testing.T) {
	st := memstore.New()
	q := queue.NewMemQueue()
	scheduler := escalation.NewScheduler(q)
	auditSvc := audit.New(st)
	svc := incident.New(st, scheduler)
	mux := http.NewServeMux()
	RegisterIncidentRoutes(mux, svc, auditSvc)

	policy := &domain.EscalationPolicy{ID: "pol-1", TeamID: "team-a", Levels: []domain.EscalationLevel{{Number: 1, TimeoutMin: -1}}}
	require.NoError(t, st.CreateEscalationPolicy(context.Background(), policy))
	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)
	require.NoError(t, scheduler.ScheduleFirst(context.Background(), inc.ID, policy))

	req := httptest.NewRequest(http.MethodPost, "/incidents/"+inc.ID+"/acknowledge", nil)
	req.Header.Set("X-User-Id", "alice")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var acked map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &acked))
	assert.Equal(t, "alice", acked["AssignedUserID"])

	jobs, err := q.Due(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	events, err := auditSvc.List(context.Background(), "team-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "incident.acknowledge", events[0].Action)
}

func TestIncidentResolveRecordsAudit(t *testing.T) {
	st := memstore.New()
	q := queue.NewMemQueue()
	scheduler := escalation.NewScheduler(q)
	auditSvc := audit.New(st)
	svc := incident.New(st, scheduler)
	mux := http.NewServeMux()
	RegisterIncidentRoutes(mux, svc, auditSvc)

	policy := &domain.EscalationPolicy{ID: "pol-1", TeamID: "team-a", Levels: []domain.EscalationLevel{{Number: 1, TimeoutMin: -1}}}
	require.NoError(t, st.CreateEscalationPolicy(context.Background(), policy))
	inc, _, err := svc.Ingest(context.Background(), &domain.Alert{Title: "a", TriggeredAt: time.Now()}, "fp-1", policy, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/incidents/"+inc.ID+"/resolve", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	events, err := auditSvc.List(context.Background(), "team-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "incident.resolve", events[0].Action)
}
