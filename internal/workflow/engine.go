package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/onwatch/sentinel/internal/domain"
	serr "github.com/onwatch/sentinel/internal/platform/errors"
	"github.com/onwatch/sentinel/pkg/logger"
	"github.com/onwatch/sentinel/resilience"
)

// ActionExecutor runs a single action node's side effect (a webhook call,
// a ticket creation, etc) and returns whatever result fields should be
// available to later nodes via templating.
type ActionExecutor interface {
	Execute(ctx context.Context, action domain.ActionKind, params map[string]interface{}) (map[string]interface{}, error)
}

// StateStore persists a WorkflowExecution after every node completes, so
// a crash mid-run resumes from CompletedNodes/CurrentNodeID rather than
// restarting the workflow.
type StateStore interface {
	SaveExecution(ctx context.Context, exec *domain.WorkflowExecution) error
	UpdateExecution(ctx context.Context, exec *domain.WorkflowExecution) error
}

// Engine runs a WorkflowExecution's DAG one node at a time, in
// topological order, unlike the teacher's parallel level-by-level
// executor: Sentinel's workflows chain side effects (ticket creation,
// notifications) whose ordering and cost make parallel fan-out the
// wrong default.
type Engine struct {
	executor ActionExecutor
	store    StateStore
	log      logger.Logger
}

func NewEngine(executor ActionExecutor, store StateStore, log logger.Logger) *Engine {
	return &Engine{executor: executor, store: store, log: log}
}

// Run executes exec.Definition against exec, mutating exec in place and
// persisting it after every node. Run is safe to call again on an
// execution that was interrupted mid-run: already-completed nodes are
// skipped.
func (e *Engine) Run(ctx context.Context, exec *domain.WorkflowExecution) error {
	d, err := newDAG(exec.Definition)
	if err != nil {
		exec.Status = domain.ExecFailed
		exec.Error = err.Error()
		return e.persist(ctx, exec)
	}

	timeout := time.Duration(exec.Definition.Timeout)
	if timeout <= 0 {
		timeout = time.Duration(domain.TimeoutMedium)
	}

	if exec.Status == "" {
		exec.Status = domain.ExecPending
	}
	exec.Status = domain.ExecRunning
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now()
	}

	// Deadline is anchored to StartedAt, not to this call's wall-clock
	// start, so a worker resuming a crashed RUNNING execution inherits
	// whatever budget is actually left rather than a fresh full timeout.
	runCtx, cancel := context.WithDeadline(ctx, exec.StartedAt.Add(timeout))
	defer cancel()

	completed := make(map[string]bool, len(exec.CompletedNodes))
	takenBranch := make(map[string]string, len(exec.CompletedNodes))
	skipped := make(map[string]bool)
	stepCtx := newStepContext(exec)
	for _, res := range exec.CompletedNodes {
		completed[res.NodeID] = true
		if res.Status == domain.NodeSkipped {
			skipped[res.NodeID] = true
		}
		if branch, ok := res.Result["branch"].(string); ok {
			takenBranch[res.NodeID] = branch
		}
	}

	order := d.topologicalOrder()

	for _, nodeID := range order {
		if completed[nodeID] {
			continue
		}
		node := d.nodes[nodeID]

		untaken := !d.dependenciesSatisfied(nodeID, takenBranch, completed)
		if !untaken && len(d.dependencies[nodeID]) > 0 {
			untaken = true
			for _, dep := range d.dependencies[nodeID] {
				if !skipped[dep.from] {
					untaken = false
					break
				}
			}
		}
		if untaken {
			// An untaken conditional branch, or a node whose every
			// predecessor was skipped: skip it and record it as skipped
			// so its own dependents are skipped in turn.
			skipped[nodeID] = true
			completed[nodeID] = true
			exec.CompletedNodes = append(exec.CompletedNodes, domain.NodeResult{
				NodeID: nodeID, Status: domain.NodeSkipped, CompletedAt: time.Now(),
			})
			if err := e.persist(ctx, exec); err != nil {
				return err
			}
			continue
		}

		elapsed := time.Since(exec.StartedAt)
		if elapsed >= timeout {
			return e.cancelOnTimeout(ctx, exec)
		}
		remaining := timeout - elapsed

		exec.CurrentNodeID = nodeID
		result, branch, nodeErr := e.runNode(runCtx, node, stepCtx, remaining)

		completedAt := time.Now()
		nr := domain.NodeResult{
			NodeID:      nodeID,
			Result:      result,
			StartedAt:   completedAt,
			CompletedAt: completedAt,
		}
		if branch != "" {
			if nr.Result == nil {
				nr.Result = map[string]interface{}{}
			}
			nr.Result["branch"] = branch
			takenBranch[nodeID] = branch
		}

		if nodeErr != nil {
			// A node's own context can expire (e.g. the per-action cap
			// below) without the workflow's overall deadline having
			// passed; only runCtx's own deadline means the workflow
			// itself timed out rather than the node genuinely failing.
			if runCtx.Err() == context.DeadlineExceeded {
				return e.cancelOnTimeout(ctx, exec)
			}
			nr.Status = domain.NodeFailed
			nr.Error = nodeErr.Error()
			exec.CompletedNodes = append(exec.CompletedNodes, nr)
			exec.Status = domain.ExecFailed
			exec.Error = fmt.Sprintf("node %s: %v", nodeID, nodeErr)
			now := time.Now()
			exec.FailedAt = &now
			return e.persist(ctx, exec)
		}

		nr.Status = domain.NodeCompleted
		exec.CompletedNodes = append(exec.CompletedNodes, nr)
		completed[nodeID] = true
		stepCtx.recordStep(nodeID, result)

		if err := e.persist(ctx, exec); err != nil {
			return err
		}
	}

	exec.Status = domain.ExecCompleted
	now := time.Now()
	exec.CompletedAt = &now
	exec.CurrentNodeID = ""
	return e.persist(ctx, exec)
}

// cancelOnTimeout finalizes exec as CANCELLED per §4.6.3.b/§4.6.6: the
// workflow's overall deadline was reached, as distinct from a single
// node failing on its own terms. Persists against ctx (not runCtx,
// which is already past its deadline) so the final state write itself
// isn't defeated by the same timeout.
func (e *Engine) cancelOnTimeout(ctx context.Context, exec *domain.WorkflowExecution) error {
	exec.Status = domain.ExecCancelled
	exec.Error = "Workflow timeout exceeded"
	now := time.Now()
	exec.FailedAt = &now
	exec.CurrentNodeID = ""
	return e.persist(ctx, exec)
}

func (e *Engine) persist(ctx context.Context, exec *domain.WorkflowExecution) error {
	if e.store == nil {
		return nil
	}
	return e.store.UpdateExecution(ctx, exec)
}

// runNode dispatches on node kind. It returns an optional branch label
// ("true"/"false") for condition nodes, used to gate downstream edges.
func (e *Engine) runNode(ctx context.Context, node *domain.WorkflowNode, sc *stepContext, remaining time.Duration) (map[string]interface{}, string, error) {
	switch node.Kind {
	case domain.NodeTrigger:
		return nil, "", nil

	case domain.NodeCondition:
		actual := lookup(sc.asMap(), node.Field)
		return map[string]interface{}{"field": node.Field}, branchLabel(actual, node.Value), nil

	case domain.NodeDelay:
		// §4.6 delay: truncate to whatever's left of the workflow's own
		// timeout, minus a 1s safety margin, so a long delay can't by
		// itself blow past the workflow deadline.
		d := time.Duration(node.DurationMinutes) * time.Minute
		if window := remaining - time.Second; window < d {
			if window < 0 {
				window = 0
			}
			d = window
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-timer.C:
			return map[string]interface{}{"delayed_minutes": node.DurationMinutes}, "", nil
		}

	case domain.NodeAction:
		params := interpolateMap(node.Params, sc.asMap())
		return e.runAction(ctx, node, params, remaining)

	default:
		return nil, "", fmt.Errorf("unknown node kind %q", node.Kind)
	}
}

func (e *Engine) runAction(ctx context.Context, node *domain.WorkflowNode, params map[string]interface{}, remaining time.Duration) (map[string]interface{}, string, error) {
	// §4.6.3.c: cap a single action node's whole retry loop at
	// min(30s, 0.8 x remaining workflow time).
	window := 30 * time.Second
	if budget := time.Duration(0.8 * float64(remaining)); budget < window {
		window = budget
	}
	if window < 0 {
		window = 0
	}
	actionCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	policy := node.Retry
	if policy == nil {
		policy = &domain.RetryPolicy{Attempts: 1}
	}
	retryCfg := &resilience.RetryConfig{
		MaxAttempts:   maxInt(policy.Attempts, 1),
		InitialDelay:  policy.InitialDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: policy.Backoff,
		JitterEnabled: true,
	}
	if retryCfg.InitialDelay <= 0 {
		retryCfg.InitialDelay = time.Second
	}
	if retryCfg.BackoffFactor <= 0 {
		retryCfg.BackoffFactor = 2
	}

	var result map[string]interface{}
	err := resilience.Retry(actionCtx, retryCfg, func() error {
		r, execErr := e.executor.Execute(actionCtx, node.Action, params)
		if execErr != nil {
			e.log.WithFields(map[string]interface{}{
				"node_id": node.ID,
				"action":  node.Action,
				"error":   execErr.Error(),
			}).Warn("workflow action attempt failed")
			return execErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, "", serr.New("workflow.runAction", serr.KindDownstream, "action node failed", err).WithID(node.ID)
	}
	return result, "", nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func branchLabel(actual, expected interface{}) string {
	if fmt.Sprint(actual) == fmt.Sprint(expected) {
		return "true"
	}
	return "false"
}

// stepContext is the templating context: the incident id under
// "incident.id" plus the accumulated result of every node executed so
// far, keyed by node id under "steps". No other incident fields, and no
// assignee, team or workflow data, are loaded into it; a path to any of
// those resolves to nil.
type stepContext struct {
	incident map[string]interface{}
	steps    map[string]interface{}
}

func newStepContext(exec *domain.WorkflowExecution) *stepContext {
	sc := &stepContext{
		incident: map[string]interface{}{"id": exec.IncidentID},
		steps:    make(map[string]interface{}),
	}
	for _, nr := range exec.CompletedNodes {
		sc.steps[nr.NodeID] = nr.Result
	}
	return sc
}

func (sc *stepContext) recordStep(nodeID string, result map[string]interface{}) {
	sc.steps[nodeID] = result
}

func (sc *stepContext) asMap() map[string]interface{} {
	return map[string]interface{}{
		"incident": sc.incident,
		"steps":    sc.steps,
	}
}
