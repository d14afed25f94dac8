package api

import (
	"net/http"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/incident"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
)

// RegisterIncidentRoutes mounts the incident lifecycle endpoints:
// acknowledge and resolve are the only mutations an operator drives
// directly, everything else about an incident follows from alert
// ingestion and escalation firing.
func RegisterIncidentRoutes(mux *http.ServeMux, svc *incident.Service, auditSvc *audit.Service) {
	h := &incidentHandler{svc: svc, audit: auditSvc}
	mux.HandleFunc("POST /incidents/{id}/acknowledge", h.acknowledge)
	mux.HandleFunc("POST /incidents/{id}/resolve", h.resolve)
}

type incidentHandler struct {
	svc   *incident.Service
	audit *audit.Service
}

func (h *incidentHandler) acknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := actor(r)
	inc, err := h.svc.Acknowledge(r.Context(), id, userID)
	if err != nil {
		writeErr(w, r, serr.New("api.AcknowledgeIncident", serr.KindConflict, err.Error(), nil).WithID(id))
		return
	}
	recordAudit(r.Context(), h.audit, "incident.acknowledge", "incident", inc.ID, inc.TeamID, userID, nil)
	writeJSON(w, http.StatusOK, inc)
}

func (h *incidentHandler) resolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inc, err := h.svc.Resolve(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "incident.resolve", "incident", inc.ID, inc.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, inc)
}
