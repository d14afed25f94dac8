package api

import (
	"net/http"
	"strconv"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/runbook"
)

func RegisterRunbookRoutes(mux *http.ServeMux, svc *runbook.Service, executor *runbook.Executor, auditSvc *audit.Service) {
	h := &runbookHandler{svc: svc, executor: executor, audit: auditSvc}
	mux.HandleFunc("POST /runbooks", h.create)
	mux.HandleFunc("PATCH /runbooks/{id}", h.update)
	mux.HandleFunc("POST /runbooks/{id}/approve", h.approve)
	mux.HandleFunc("POST /runbooks/{id}/deprecate", h.deprecate)
	mux.HandleFunc("POST /runbooks/{id}/rollback", h.rollback)
	mux.HandleFunc("POST /runbooks/{id}/execute", h.execute)
}

type runbookHandler struct {
	svc      *runbook.Service
	executor *runbook.Executor
	audit    *audit.Service
}

type runbookRequest struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	URL             string               `json:"url"`
	Method          string               `json:"method"`
	Headers         map[string]string    `json:"headers"`
	Auth            domain.RunbookAuth   `json:"auth"`
	ParamSchema     []domain.ParamSchema `json:"param_schema"`
	PayloadTemplate string               `json:"payload_template"`
	TimeoutSeconds  int                  `json:"timeout_seconds"`
	TeamID          string               `json:"team_id"`
}

func (h *runbookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req runbookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.CreateRunbook", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}
	rb := &domain.Runbook{
		Name: req.Name, Description: req.Description, URL: req.URL, Method: req.Method,
		Headers: req.Headers, Auth: req.Auth, ParamSchema: req.ParamSchema,
		PayloadTemplate: req.PayloadTemplate, TimeoutSeconds: req.TimeoutSeconds, TeamID: req.TeamID,
	}
	if err := h.svc.Create(r.Context(), rb); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "runbook.create", "runbook", rb.ID, rb.TeamID, actor(r), map[string]interface{}{"name": rb.Name})
	writeJSON(w, http.StatusCreated, rb)
}

func (h *runbookHandler) update(w http.ResponseWriter, r *http.Request) {
	var req runbookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.UpdateRunbook", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}
	rb := &domain.Runbook{
		ID: r.PathValue("id"), Name: req.Name, Description: req.Description, URL: req.URL, Method: req.Method,
		Headers: req.Headers, Auth: req.Auth, ParamSchema: req.ParamSchema,
		PayloadTemplate: req.PayloadTemplate, TimeoutSeconds: req.TimeoutSeconds, TeamID: req.TeamID,
	}
	if err := h.svc.Update(r.Context(), rb, r.Header.Get("X-User-Id"), r.URL.Query().Get("note")); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "runbook.update", "runbook", rb.ID, rb.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, rb)
}

func (h *runbookHandler) approve(w http.ResponseWriter, r *http.Request) {
	rb, err := h.svc.Approve(r.Context(), r.PathValue("id"), r.Header.Get("X-User-Id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "runbook.approve", "runbook", rb.ID, rb.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, rb)
}

func (h *runbookHandler) deprecate(w http.ResponseWriter, r *http.Request) {
	rb, err := h.svc.Deprecate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "runbook.deprecate", "runbook", rb.ID, rb.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, rb)
}

func (h *runbookHandler) rollback(w http.ResponseWriter, r *http.Request) {
	toVersion, err := strconv.Atoi(r.URL.Query().Get("version"))
	if err != nil {
		writeErr(w, r, serr.New("api.RollbackRunbook", serr.KindValidation, "version query param must be an integer", serr.ErrValidationFailed))
		return
	}
	rb, err := h.svc.Rollback(r.Context(), r.PathValue("id"), toVersion, r.Header.Get("X-User-Id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "runbook.update", "runbook", rb.ID, rb.TeamID, actor(r), map[string]interface{}{"rollback_to_version": toVersion})
	writeJSON(w, http.StatusOK, rb)
}

func (h *runbookHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params map[string]interface{} `json:"params"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.ExecuteRunbook", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}

	rb, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := runbook.EnsureExecutable(rb); err != nil {
		writeErr(w, r, err)
		return
	}

	exec, err := h.executor.Run(r.Context(), rb, req.Params, domain.TriggeredByManual)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exec)
}
