// Package runbook implements the runbook approval state machine
// (DRAFT -> APPROVED -> DEPRECATED) and the webhook executor that runs
// an APPROVED runbook's action.
package runbook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onwatch/sentinel/internal/cache"
	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/internal/store"
)

type Store interface {
	store.RunbookStore
	store.RunbookExecutionStore
}

// Service owns the approval state machine. paramSchemaCache holds the
// most recently read ParamSchema per (runbookID, version), invalidated
// on every edit; grounded on core/schema_cache.go's cache-by-id-and-
// version pattern.
type Service struct {
	store            Store
	paramSchemaCache *cache.TTLCache[[]domain.ParamSchema]
}

func New(s Store) *Service {
	return &Service{store: s, paramSchemaCache: cache.New[[]domain.ParamSchema]()}
}

// Get returns a runbook by id, unmodified.
func (s *Service) Get(ctx context.Context, runbookID string) (*domain.Runbook, error) {
	return s.store.GetRunbook(ctx, runbookID)
}

func (s *Service) Create(ctx context.Context, r *domain.Runbook) error {
	r.ID = uuid.NewString()
	r.Version = 1
	r.ApprovalStatus = domain.ApprovalDraft
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	if err := s.store.CreateRunbook(ctx, r); err != nil {
		return err
	}
	return s.store.SaveRunbookVersion(ctx, &domain.RunbookVersion{
		RunbookID: r.ID, Version: r.Version, Definition: *r, CreatedAt: r.CreatedAt,
	})
}

// Update applies edits to an existing runbook. Editing an APPROVED
// runbook auto-reverts it to DRAFT: an approval only covers the
// definition it was granted for, so any change must be re-approved.
func (s *Service) Update(ctx context.Context, r *domain.Runbook, changedBy, note string) error {
	existing, err := s.store.GetRunbook(ctx, r.ID)
	if err != nil {
		return err
	}
	if existing.ApprovalStatus == domain.ApprovalApproved {
		r.ApprovalStatus = domain.ApprovalDraft
		r.Approver = ""
		r.ApprovedAt = nil
		const revertNote = "reverted from APPROVED to DRAFT"
		if note == "" {
			note = revertNote
		} else {
			note = note + ": " + revertNote
		}
	} else {
		r.ApprovalStatus = existing.ApprovalStatus
	}
	r.Version = existing.Version + 1
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()

	if err := s.store.UpdateRunbook(ctx, r); err != nil {
		return err
	}
	s.paramSchemaCache.Delete(cacheKey(r.ID, existing.Version))
	return s.store.SaveRunbookVersion(ctx, &domain.RunbookVersion{
		RunbookID: r.ID, Version: r.Version, Definition: *r, ChangeNote: note, ChangedBy: changedBy, CreatedAt: r.UpdatedAt,
	})
}

// Approve transitions a DRAFT runbook to APPROVED. A DEPRECATED
// runbook cannot be re-approved directly; roll it back to a prior
// version first.
func (s *Service) Approve(ctx context.Context, runbookID, approver string) (*domain.Runbook, error) {
	r, err := s.store.GetRunbook(ctx, runbookID)
	if err != nil {
		return nil, err
	}
	if r.ApprovalStatus != domain.ApprovalDraft {
		return nil, fmt.Errorf("runbook: cannot approve runbook %s in state %s", runbookID, r.ApprovalStatus)
	}
	now := time.Now()
	r.ApprovalStatus = domain.ApprovalApproved
	r.Approver = approver
	r.ApprovedAt = &now
	r.UpdatedAt = now
	if err := s.store.UpdateRunbook(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Deprecate retires a runbook so it can no longer be executed.
func (s *Service) Deprecate(ctx context.Context, runbookID string) (*domain.Runbook, error) {
	r, err := s.store.GetRunbook(ctx, runbookID)
	if err != nil {
		return nil, err
	}
	r.ApprovalStatus = domain.ApprovalDeprecated
	r.UpdatedAt = time.Now()
	if err := s.store.UpdateRunbook(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Rollback creates a new version copying an older version's
// definition, becoming the runbook's current version. The restored
// version is always DRAFT with no approver, so it needs re-approval.
func (s *Service) Rollback(ctx context.Context, runbookID string, toVersion int, changedBy string) (*domain.Runbook, error) {
	old, err := s.store.GetRunbookVersion(ctx, runbookID, toVersion)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetRunbook(ctx, runbookID)
	if err != nil {
		return nil, err
	}

	restored := old.Definition
	restored.ID = runbookID
	restored.Version = current.Version + 1
	restored.CreatedAt = current.CreatedAt
	restored.UpdatedAt = time.Now()
	restored.ApprovalStatus = domain.ApprovalDraft
	restored.Approver = ""
	restored.ApprovedAt = nil

	if err := s.store.UpdateRunbook(ctx, &restored); err != nil {
		return nil, err
	}
	if err := s.store.SaveRunbookVersion(ctx, &domain.RunbookVersion{
		RunbookID: runbookID, Version: restored.Version, Definition: restored,
		ChangeNote: fmt.Sprintf("rollback to v%d", toVersion), ChangedBy: changedBy, CreatedAt: restored.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return &restored, nil
}

// ParamSchema returns the runbook's current parameter schema, caching
// it by (id, version).
func (s *Service) ParamSchema(ctx context.Context, runbookID string) ([]domain.ParamSchema, error) {
	r, err := s.store.GetRunbook(ctx, runbookID)
	if err != nil {
		return nil, err
	}
	key := cacheKey(runbookID, r.Version)
	if cached, ok := s.paramSchemaCache.Get(key); ok {
		return cached, nil
	}
	s.paramSchemaCache.Set(key, r.ParamSchema, 24*time.Hour)
	return r.ParamSchema, nil
}

func cacheKey(runbookID string, version int) string {
	return fmt.Sprintf("%s:%d", runbookID, version)
}

// EnsureExecutable returns an error if the runbook is not currently
// runnable: deprecated runbooks and runbooks that are not yet
// approved cannot be triggered, whether from a workflow action or
// manually.
func EnsureExecutable(r *domain.Runbook) error {
	switch r.ApprovalStatus {
	case domain.ApprovalApproved:
		return nil
	case domain.ApprovalDeprecated:
		return serr.New("runbook.EnsureExecutable", serr.KindConflict, "runbook is deprecated", serr.ErrRunbookDeprecated).WithID(r.ID)
	default:
		return serr.New("runbook.EnsureExecutable", serr.KindConflict, "runbook is not approved", nil).WithID(r.ID)
	}
}
