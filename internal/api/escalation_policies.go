package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/store"
)

func RegisterEscalationPolicyRoutes(mux *http.ServeMux, s store.EscalationPolicyStore, auditSvc *audit.Service) {
	h := &escalationPolicyHandler{store: s, audit: auditSvc}
	mux.HandleFunc("POST /escalation-policies", h.create)
	mux.HandleFunc("GET /escalation-policies/{id}", h.get)
	mux.HandleFunc("PATCH /escalation-policies/{id}", h.update)
	mux.HandleFunc("PUT /escalation-policies/{id}/levels", h.replaceLevels)
}

type escalationPolicyHandler struct {
	store store.EscalationPolicyStore
	audit *audit.Service
}

type escalationPolicyRequest struct {
	Name        string                   `json:"name"`
	TeamID      string                   `json:"team_id"`
	IsDefault   bool                     `json:"is_default"`
	RepeatCount int                      `json:"repeat_count"`
	Levels      []domain.EscalationLevel `json:"levels"`
}

func (h *escalationPolicyHandler) create(w http.ResponseWriter, r *http.Request) {
	var req escalationPolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.CreateEscalationPolicy", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}
	if len(req.Levels) == 0 {
		writeErr(w, r, serr.New("api.CreateEscalationPolicy", serr.KindValidation, "policy must have at least one level", serr.ErrValidationFailed))
		return
	}

	p := &domain.EscalationPolicy{
		ID:          uuid.NewString(),
		Name:        req.Name,
		TeamID:      req.TeamID,
		IsDefault:   req.IsDefault,
		RepeatCount: req.RepeatCount,
		Levels:      req.Levels,
	}
	if err := h.store.CreateEscalationPolicy(r.Context(), p); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "escalation_policy.create", "escalation_policy", p.ID, p.TeamID, actor(r), nil)
	writeJSON(w, http.StatusCreated, p)
}

func (h *escalationPolicyHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetEscalationPolicy(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *escalationPolicyHandler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetEscalationPolicy(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var req escalationPolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.UpdateEscalationPolicy", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}
	existing.Name = req.Name
	existing.IsDefault = req.IsDefault
	existing.RepeatCount = req.RepeatCount
	if len(req.Levels) > 0 {
		existing.Levels = req.Levels
	}
	if err := h.store.UpdateEscalationPolicy(r.Context(), existing); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "escalation_policy.update", "escalation_policy", existing.ID, existing.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, existing)
}

func (h *escalationPolicyHandler) replaceLevels(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetEscalationPolicy(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var levels []domain.EscalationLevel
	if err := decodeJSON(r, &levels); err != nil {
		writeErr(w, r, serr.New("api.ReplaceEscalationLevels", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}
	if len(levels) == 0 {
		writeErr(w, r, serr.New("api.ReplaceEscalationLevels", serr.KindValidation, "policy must have at least one level", serr.ErrValidationFailed))
		return
	}
	existing.Levels = levels
	if err := h.store.UpdateEscalationPolicy(r.Context(), existing); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "escalation_policy.update", "escalation_policy", existing.ID, existing.TeamID, actor(r), map[string]interface{}{"levels_replaced": true})
	writeJSON(w, http.StatusOK, existing)
}
