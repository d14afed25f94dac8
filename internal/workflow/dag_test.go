package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onwatch/sentinel/internal/domain"
)

func TestNewDAGRejectsCycle(t *testing.T) {
	def := domain.WorkflowDefinition{
		Nodes: []domain.WorkflowNode{{ID: "a"}, {ID: "b"}},
		Edges: []domain.WorkflowEdge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}
	_, err := newDAG(def)
	require.Error(t, err)
}

func TestNewDAGRejectsUnknownEdgeTarget(t *testing.T) {
	def := domain.WorkflowDefinition{
		Nodes: []domain.WorkflowNode{{ID: "a"}},
		Edges: []domain.WorkflowEdge{{Source: "a", Target: "missing"}},
	}
	_, err := newDAG(def)
	require.Error(t, err)
}

func TestTopologicalOrderRespectsDependencies(t *testing.T) {
	def := domain.WorkflowDefinition{
		Nodes: []domain.WorkflowNode{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []domain.WorkflowEdge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}
	d, err := newDAG(def)
	require.NoError(t, err)

	order := d.topologicalOrder()
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestDependenciesSatisfiedHonorsBranchLabel(t *testing.T) {
	def := domain.WorkflowDefinition{
		Nodes: []domain.WorkflowNode{{ID: "check"}, {ID: "on_true"}},
		Edges: []domain.WorkflowEdge{{Source: "check", Target: "on_true", Branch: "true"}},
	}
	d, err := newDAG(def)
	require.NoError(t, err)

	completed := map[string]bool{"check": true}
	assert.False(t, d.dependenciesSatisfied("on_true", map[string]string{"check": "false"}, completed))
	assert.True(t, d.dependenciesSatisfied("on_true", map[string]string{"check": "true"}, completed))
}
