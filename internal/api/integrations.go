package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/audit"
	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/store"
)

// RegisterIntegrationRoutes mounts the integration management
// endpoints. The signing secret is returned only from create and
// rotate-secret; every other response redacts it to an 8-char prefix.
func RegisterIntegrationRoutes(mux *http.ServeMux, s store.IntegrationStore, auditSvc *audit.Service) {
	h := &integrationHandler{store: s, audit: auditSvc}
	mux.HandleFunc("POST /integrations", h.create)
	mux.HandleFunc("GET /integrations", h.list)
	mux.HandleFunc("GET /integrations/{id}", h.get)
	mux.HandleFunc("PATCH /integrations/{id}", h.update)
	mux.HandleFunc("POST /integrations/{id}/rotate-secret", h.rotateSecret)
	mux.HandleFunc("DELETE /integrations/{id}", h.delete)
}

type integrationHandler struct {
	store store.IntegrationStore
	audit *audit.Service
}

type integrationRequest struct {
	Name             string                    `json:"name"`
	Provider         domain.ProviderKind       `json:"provider"`
	TeamID           string                    `json:"team_id"`
	SignatureHeader  string                    `json:"signature_header"`
	Algorithm        domain.SignatureAlgorithm `json:"algorithm"`
	Format           domain.SignatureFormat    `json:"format"`
	Prefix           string                    `json:"prefix"`
	TimestampHeader  string                    `json:"timestamp_header"`
	MaxAgeSeconds    int                       `json:"max_age_seconds"`
	DedupWindowMin   int                       `json:"dedup_window_min"`
	DefaultServiceID string                    `json:"default_service_id"`
}

// redactedIntegration is what every response except create/rotate
// returns: the secret is replaced by its first 8 hex characters.
type redactedIntegration struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Provider         string    `json:"provider"`
	TeamID           string    `json:"team_id"`
	SecretPrefix     string    `json:"secret_prefix"`
	SignatureHeader  string    `json:"signature_header"`
	Algorithm        string    `json:"algorithm"`
	Format           string    `json:"format"`
	Active           bool      `json:"active"`
	DefaultServiceID string    `json:"default_service_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func redact(integ *domain.Integration) redactedIntegration {
	prefix := hex.EncodeToString(integ.SigningSecret)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return redactedIntegration{
		ID:               integ.ID,
		Name:             integ.Name,
		Provider:         string(integ.Provider),
		TeamID:           integ.TeamID,
		SecretPrefix:     prefix,
		SignatureHeader:  integ.SignatureHeader,
		Algorithm:        string(integ.Algorithm),
		Format:           string(integ.Format),
		Active:           integ.Active,
		DefaultServiceID: integ.DefaultServiceID,
		CreatedAt:        integ.CreatedAt,
		UpdatedAt:        integ.UpdatedAt,
	}
}

func generateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("api: generating signing secret: %w", err)
	}
	return secret, nil
}

func (h *integrationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req integrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.CreateIntegration", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}

	secret, err := generateSecret()
	if err != nil {
		writeErr(w, r, err)
		return
	}

	now := time.Now()
	integ := &domain.Integration{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Provider:         req.Provider,
		TeamID:           req.TeamID,
		SigningSecret:    secret,
		SignatureHeader:  req.SignatureHeader,
		Algorithm:        req.Algorithm,
		Format:           req.Format,
		Prefix:           req.Prefix,
		TimestampHeader:  req.TimestampHeader,
		MaxAgeSeconds:    req.MaxAgeSeconds,
		DedupWindowMin:   req.DedupWindowMin,
		Active:           true,
		DefaultServiceID: req.DefaultServiceID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.store.CreateIntegration(r.Context(), integ); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "integration.create", "integration", integ.ID, integ.TeamID, actor(r), map[string]interface{}{"name": integ.Name})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":             integ.ID,
		"name":           integ.Name,
		"signing_secret": hex.EncodeToString(secret),
	})
}

func (h *integrationHandler) list(w http.ResponseWriter, r *http.Request) {
	integs, err := h.store.ListIntegrations(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]redactedIntegration, 0, len(integs))
	for _, integ := range integs {
		out = append(out, redact(integ))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *integrationHandler) get(w http.ResponseWriter, r *http.Request) {
	integ, err := h.store.GetIntegration(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(integ))
}

func (h *integrationHandler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetIntegration(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	var req integrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, r, serr.New("api.UpdateIntegration", serr.KindValidation, err.Error(), serr.ErrValidationFailed))
		return
	}

	existing.Name = req.Name
	existing.SignatureHeader = req.SignatureHeader
	existing.Algorithm = req.Algorithm
	existing.Format = req.Format
	existing.Prefix = req.Prefix
	existing.TimestampHeader = req.TimestampHeader
	existing.MaxAgeSeconds = req.MaxAgeSeconds
	existing.DedupWindowMin = req.DedupWindowMin
	existing.DefaultServiceID = req.DefaultServiceID
	existing.UpdatedAt = time.Now()

	if err := h.store.UpdateIntegration(r.Context(), existing); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "integration.update", "integration", existing.ID, existing.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, redact(existing))
}

func (h *integrationHandler) rotateSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetIntegration(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	secret, err := generateSecret()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	existing.SigningSecret = secret
	existing.UpdatedAt = time.Now()
	if err := h.store.UpdateIntegration(r.Context(), existing); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "integration.rotate_secret", "integration", existing.ID, existing.TeamID, actor(r), nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":             existing.ID,
		"signing_secret": hex.EncodeToString(secret),
	})
}

func (h *integrationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetIntegration(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.store.DeleteIntegration(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	recordAudit(r.Context(), h.audit, "integration.delete", "integration", id, existing.TeamID, actor(r), nil)
	w.WriteHeader(http.StatusNoContent)
}
