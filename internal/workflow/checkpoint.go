// Package workflow implements the Checkpointer + Workflow Runtime (C10):
// generic staged-pipeline execution with per-thread, per-namespace state
// checkpointing before each node runs, so a workflow can be resumed by
// thread id after a restart. Grounded on server/poller.go's
// Workflow.Phase-based state machine (a kvstore.Workflow record with a
// Phase field, persisted via SaveWorkflow/GetWorkflow after each
// transition) and server/hitl.go's staged planning→review→implementing
// phases, generalized from a fixed three-phase HITL flow to an arbitrary
// named-node pipeline driven by a per-workflow Router.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
)

const checkpointSet = "workflow_checkpoints"

// Checkpoint is the persisted envelope around a workflow's state at a
// given step, keyed by (thread_id, checkpoint_ns).
type Checkpoint[S any] struct {
	ThreadID  string `json:"thread_id"`
	Namespace string `json:"checkpoint_ns"`
	StepIndex int    `json:"step_index"`
	StepName  string `json:"step_name"`
	State     S      `json:"state"`
}

// Checkpointer persists and retrieves the latest checkpoint for a thread.
type Checkpointer[S any] interface {
	Save(ctx context.Context, threadID, namespace string, stepIndex int, stepName string, state S) error
	LoadLatest(ctx context.Context, threadID, namespace string) (Checkpoint[S], bool, error)
}

func checkpointKey(threadID, namespace string) string {
	return threadID + "/" + namespace
}

// KVCheckpointer persists checkpoints into the KV store, per §4.10: writes
// are best-effort but synchronous — if the store is unreachable, Save logs
// and returns nil so the workflow proceeds in-memory instead of aborting.
type KVCheckpointer[S any] struct {
	kv     kvstore.Client
	logger logging.Logger
}

// NewKVCheckpointer builds a KVCheckpointer.
func NewKVCheckpointer[S any](kv kvstore.Client, logger logging.Logger) *KVCheckpointer[S] {
	return &KVCheckpointer[S]{kv: kv, logger: logger}
}

func (c *KVCheckpointer[S]) Save(ctx context.Context, threadID, namespace string, stepIndex int, stepName string, state S) error {
	cp := Checkpoint[S]{ThreadID: threadID, Namespace: namespace, StepIndex: stepIndex, StepName: stepName, State: state}
	if _, err := kvstore.PutWrapped(c.kv, checkpointSet, checkpointKey(threadID, namespace), cp); err != nil {
		c.logger.Warn("workflow: checkpoint write failed, proceeding in-memory",
			"thread_id", threadID, "namespace", namespace, "step", stepName, "error", err.Error())
	}
	return nil
}

func (c *KVCheckpointer[S]) LoadLatest(ctx context.Context, threadID, namespace string) (Checkpoint[S], bool, error) {
	var cp Checkpoint[S]
	ok, err := kvstore.GetWrapped(c.kv, checkpointSet, checkpointKey(threadID, namespace), &cp)
	if err != nil {
		return Checkpoint[S]{}, false, errors.Wrap(err, "workflow: load checkpoint")
	}
	return cp, ok, nil
}

// MemoryCheckpointer is an in-memory Checkpointer for tests and for
// callers that opt out of persistence (§6's USE_WORKFLOW_ORCHESTRATION
// toggle set to a degraded mode).
type MemoryCheckpointer[S any] struct {
	mu    sync.Mutex
	store map[string]Checkpoint[S]
}

// NewMemoryCheckpointer builds a MemoryCheckpointer.
func NewMemoryCheckpointer[S any]() *MemoryCheckpointer[S] {
	return &MemoryCheckpointer[S]{store: make(map[string]Checkpoint[S])}
}

func (m *MemoryCheckpointer[S]) Save(ctx context.Context, threadID, namespace string, stepIndex int, stepName string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[checkpointKey(threadID, namespace)] = Checkpoint[S]{
		ThreadID: threadID, Namespace: namespace, StepIndex: stepIndex, StepName: stepName, State: state,
	}
	return nil
}

func (m *MemoryCheckpointer[S]) LoadLatest(ctx context.Context, threadID, namespace string) (Checkpoint[S], bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.store[checkpointKey(threadID, namespace)]
	return cp, ok, nil
}

// cloneViaJSON is used where a defensive copy of state is cheaper to
// reason about than threading mutation rules through every node; workflow
// states in this package are small enough that this isn't a hot path.
func cloneViaJSON[S any](in S) (S, error) {
	var out S
	raw, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("workflow: clone state: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("workflow: clone state: %w", err)
	}
	return out, nil
}
