// Package api implements the internal CRUD HTTP surface for
// integrations, workflows, workflow templates, runbooks, and
// escalation policies, per spec.md §6's "shape only" contract.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/platform/problem"
)

// actorHeader carries the caller identity on internal API requests.
// There is no IdP/session surface in scope (spec.md Non-goals), so
// audit events fall back to this header or "api" when it's absent.
const actorHeader = "X-User-Id"

func actor(r *http.Request) string {
	if a := r.Header.Get(actorHeader); a != "" {
		return a
	}
	return "api"
}

// recordAudit appends an audit event for a mutating API call. It is a
// fire-and-forget best-effort write, same as internal/ingest's: a
// failure to audit must never fail the request it's describing.
func recordAudit(ctx context.Context, auditSvc *audit.Service, action, resourceType, resourceID, teamID string, actorID string, metadata map[string]interface{}) {
	if auditSvc == nil {
		return
	}
	_ = auditSvc.RecordWithSeverity(ctx, actorID, action, resourceType, resourceID, teamID, audit.ClassifySeverity(action), metadata)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	problem.Write(w, r, err)
}
