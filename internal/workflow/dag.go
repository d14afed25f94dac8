// Package workflow implements the versioned DAG workflow engine: node
// graph construction and topological ordering (dag.go), sequential
// execution with per-action retries and template interpolation
// (engine.go), trigger matching (trigger.go), and context templating
// (template.go).
package workflow

import (
	"fmt"
	"sync"

	"github.com/onwatch/sentinel/internal/domain"
)

// dag is the in-memory adjacency structure built from a
// domain.WorkflowDefinition's node and edge lists, generalized from a
// plain dependency DAG into one that also tracks branch labels on
// condition-node edges.
type dag struct {
	mu    sync.RWMutex
	nodes map[string]*domain.WorkflowNode
	// dependencies[id] lists the node ids that must complete before id
	// can run, together with the branch label required of that
	// predecessor (empty label means unconditional).
	dependencies map[string][]edge
	// dependents is the reverse of dependencies, used for cycle
	// detection and topological ordering.
	dependents map[string][]string
}

type edge struct {
	from   string
	branch string
}

func newDAG(def domain.WorkflowDefinition) (*dag, error) {
	d := &dag{
		nodes:        make(map[string]*domain.WorkflowNode, len(def.Nodes)),
		dependencies: make(map[string][]edge, len(def.Nodes)),
		dependents:   make(map[string][]string, len(def.Nodes)),
	}

	for i := range def.Nodes {
		n := def.Nodes[i]
		if _, exists := d.nodes[n.ID]; exists {
			return nil, fmt.Errorf("workflow: duplicate node id %q", n.ID)
		}
		d.nodes[n.ID] = &n
	}

	for _, e := range def.Edges {
		if _, ok := d.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("workflow: edge references unknown source node %q", e.Source)
		}
		if _, ok := d.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("workflow: edge references unknown target node %q", e.Target)
		}
		d.dependencies[e.Target] = append(d.dependencies[e.Target], edge{from: e.Source, branch: e.Branch})
		d.dependents[e.Source] = append(d.dependents[e.Source], e.Target)
	}

	if err := d.validateAcyclic(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dag) validateAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(d.nodes))
	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, next := range d.dependents[id] {
			switch color[next] {
			case gray:
				return fmt.Errorf("workflow: cycle detected at node %q", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for id := range d.nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// topologicalOrder returns node ids via Kahn's algorithm. Ready nodes are
// taken in Go map iteration order, so the relative order of independent
// nodes is not fixed from one call to the next.
func (d *dag) topologicalOrder() []string {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.dependencies[id])
	}

	order := make([]string, 0, len(d.nodes))
	seen := make(map[string]bool, len(d.nodes))

	for {
		progressed := false
		for id := range d.nodes {
			if seen[id] || inDegree[id] != 0 {
				continue
			}
			seen[id] = true
			order = append(order, id)
			progressed = true
			for _, dependent := range d.dependents[id] {
				inDegree[dependent]--
			}
		}
		if !progressed {
			break
		}
	}
	return order
}

// triggerNode returns the single trigger node, if the definition has one.
func (d *dag) triggerNode() *domain.WorkflowNode {
	for _, n := range d.nodes {
		if n.Kind == domain.NodeTrigger {
			return n
		}
	}
	return nil
}

// dependenciesSatisfied reports whether id's incoming edges are satisfied
// given the branch taken (if any) by each already-completed predecessor.
func (d *dag) dependenciesSatisfied(id string, takenBranch map[string]string, completed map[string]bool) bool {
	for _, dep := range d.dependencies[id] {
		if !completed[dep.from] {
			return false
		}
		if dep.branch != "" && takenBranch[dep.from] != dep.branch {
			return false
		}
	}
	return true
}
