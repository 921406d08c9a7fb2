package workflow

import (
	"context"

	"github.com/quickmart/churnguard/internal/logging"
)

// StepFunc runs one named node, returning the updated state.
type StepFunc[S any] func(ctx context.Context, state S) (S, error)

// RouteFunc decides the next node name given the post-step state. next=""
// means the workflow terminates normally; there is no separate failure
// result (a RouteFunc always knows where to go, even if that's to an
// error-handler terminal node).
type RouteFunc[S any] func(state S) (next string)

// Node is one step in a workflow's directed graph: its work function and
// the routing function that inspects the resulting state to pick the next
// node.
type Node[S any] struct {
	Name  string
	Run   StepFunc[S]
	Route RouteFunc[S]
}

// Runner executes a workflow's nodes in the order its Route functions
// select, checkpointing state before each node runs, per §4.10.
type Runner[S any] struct {
	nodes        map[string]Node[S]
	start        string
	checkpointer Checkpointer[S]
	namespace    string
	logger       logging.Logger
}

// NewRunner builds a Runner over the given nodes (keyed by Name), starting
// at startNode, checkpointing under namespace.
func NewRunner[S any](nodes []Node[S], startNode, namespace string, checkpointer Checkpointer[S], logger logging.Logger) *Runner[S] {
	byName := make(map[string]Node[S], len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}
	return &Runner[S]{nodes: byName, start: startNode, checkpointer: checkpointer, namespace: namespace, logger: logger}
}

// Run executes the workflow for threadID starting from initialState,
// running nodes until a Route function returns "" (normal completion) or
// an error-handler node is reached and itself terminates. It returns the
// final state and a node name: the node whose Run failed, or the
// unregistered name a Route returned; on normal completion the name is "".
func (r *Runner[S]) Run(ctx context.Context, threadID string, initialState S) (S, string, error) {
	return r.runFrom(ctx, threadID, r.start, initialState, 0)
}

// Resume loads the latest checkpoint for threadID and resumes execution
// from the node named in it, per §4.10's "resumption is by thread id"
// contract. If no checkpoint exists, it behaves like a fresh Run from
// fallbackStart.
func (r *Runner[S]) Resume(ctx context.Context, threadID string, fallbackStart string, fallbackState S) (S, string, error) {
	cp, ok, err := r.checkpointer.LoadLatest(ctx, threadID, r.namespace)
	if err != nil || !ok {
		return r.runFrom(ctx, threadID, fallbackStart, fallbackState, 0)
	}
	return r.runFrom(ctx, threadID, cp.StepName, cp.State, cp.StepIndex)
}

func (r *Runner[S]) runFrom(ctx context.Context, threadID, startNode string, state S, stepIndex int) (S, string, error) {
	current := startNode
	for current != "" {
		node, ok := r.nodes[current]
		if !ok {
			return state, current, &ErrUnknownNode{Name: current}
		}

		if err := r.checkpointer.Save(ctx, threadID, r.namespace, stepIndex, node.Name, state); err != nil {
			r.logger.Warn("workflow: checkpoint save failed", "thread_id", threadID, "step", node.Name, "error", err.Error())
		}

		next, err := node.Run(ctx, state)
		if err != nil {
			return next, node.Name, err
		}
		state = next
		stepIndex++
		current = node.Route(state)
	}
	return state, "", nil
}

// ErrUnknownNode is returned when a Route function names a node that
// wasn't registered with the Runner.
type ErrUnknownNode struct {
	Name string
}

func (e *ErrUnknownNode) Error() string {
	return "workflow: unknown node " + e.Name
}
