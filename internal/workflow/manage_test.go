package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/internal/store/memstore"
)

func TestManagerCreateStartsAtVersionOne(t *testing.T) {
	mgr := NewManager(memstore.New())
	w := &domain.Workflow{Name: "ticket-on-create", TeamID: "team-a"}
	require.NoError(t, mgr.Create(context.Background(), w))
	assert.Equal(t, 1, w.Version)
	assert.NotEmpty(t, w.ID)
}

func TestManagerUpdatePreservesEnabledAndBumpsVersion(t *testing.T) {
	mgr := NewManager(memstore.New())
	w := &domain.Workflow{Name: "w1", TeamID: "team-a", Enabled: true}
	require.NoError(t, mgr.Create(context.Background(), w))

	edit := &domain.Workflow{ID: w.ID, Name: "w1-renamed", TeamID: "team-a", Enabled: false}
	require.NoError(t, mgr.Update(context.Background(), edit, "user-1", "rename"))
	assert.Equal(t, 2, edit.Version)
	assert.True(t, edit.Enabled)
}

func TestManagerToggleRejectsStaleVersion(t *testing.T) {
	mgr := NewManager(memstore.New())
	w := &domain.Workflow{Name: "w1", TeamID: "team-a"}
	require.NoError(t, mgr.Create(context.Background(), w))

	_, err := mgr.Toggle(context.Background(), w.ID, w.Version+1, true)
	assert.Error(t, err)

	updated, err := mgr.Toggle(context.Background(), w.ID, w.Version, true)
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
}

func TestManagerDuplicateCreatesDisabledClone(t *testing.T) {
	mgr := NewManager(memstore.New())
	w := &domain.Workflow{Name: "w1", TeamID: "team-a", Enabled: true}
	require.NoError(t, mgr.Create(context.Background(), w))

	clone, err := mgr.Duplicate(context.Background(), w.ID, "w1-copy")
	require.NoError(t, err)
	assert.False(t, clone.Enabled)
	assert.NotEqual(t, w.ID, clone.ID)
}

func TestManagerRollbackRestoresOlderDefinition(t *testing.T) {
	mgr := NewManager(memstore.New())
	w := &domain.Workflow{Name: "w1", TeamID: "team-a", Definition: domain.WorkflowDefinition{Nodes: []domain.WorkflowNode{{ID: "n1"}}}}
	require.NoError(t, mgr.Create(context.Background(), w))

	edit := &domain.Workflow{ID: w.ID, Name: "w1", TeamID: "team-a", Definition: domain.WorkflowDefinition{Nodes: []domain.WorkflowNode{{ID: "n1"}, {ID: "n2"}}}}
	require.NoError(t, mgr.Update(context.Background(), edit, "user-1", "add node"))

	restored, err := mgr.Rollback(context.Background(), w.ID, 1, "user-1")
	require.NoError(t, err)
	assert.Len(t, restored.Definition.Nodes, 1)
	assert.Equal(t, 3, restored.Version)
}
