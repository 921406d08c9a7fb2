package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/logging"
)

type counterState struct {
	Count int
	Log   []string
}

func buildCounterRunner(cp Checkpointer[counterState]) *Runner[counterState] {
	nodes := []Node[counterState]{
		{
			Name: "increment",
			Run: func(_ context.Context, s counterState) (counterState, error) {
				s.Count++
				s.Log = append(s.Log, "increment")
				return s, nil
			},
			Route: func(s counterState) string {
				if s.Count < 3 {
					return "increment"
				}
				return "finish"
			},
		},
		{
			Name: "finish",
			Run: func(_ context.Context, s counterState) (counterState, error) {
				s.Log = append(s.Log, "finish")
				return s, nil
			},
			Route: func(counterState) string { return "" },
		},
	}
	return NewRunner(nodes, "increment", "test-ns", cp, logging.Nop{})
}

func TestRunnerExecutesUntilRouteEnds(t *testing.T) {
	cp := NewMemoryCheckpointer[counterState]()
	r := buildCounterRunner(cp)

	final, lastNode, err := r.Run(context.Background(), "thread-1", counterState{})
	require.NoError(t, err)
	assert.Equal(t, "", lastNode)
	assert.Equal(t, 3, final.Count)
	assert.Equal(t, []string{"increment", "increment", "increment", "finish"}, final.Log)
}

func TestRunnerCheckpointsBeforeEachNode(t *testing.T) {
	cp := NewMemoryCheckpointer[counterState]()
	r := buildCounterRunner(cp)

	_, _, err := r.Run(context.Background(), "thread-1", counterState{})
	require.NoError(t, err)

	last, ok, err := cp.LoadLatest(context.Background(), "thread-1", "test-ns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "finish", last.StepName)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	cp := NewMemoryCheckpointer[counterState]()
	require.NoError(t, cp.Save(context.Background(), "thread-2", "test-ns", 2, "increment", counterState{Count: 2, Log: []string{"increment", "increment"}}))

	r := buildCounterRunner(cp)
	final, _, err := r.Resume(context.Background(), "thread-2", "increment", counterState{})
	require.NoError(t, err)
	assert.Equal(t, 3, final.Count)
}

func TestRunnerErrorStopsExecution(t *testing.T) {
	cp := NewMemoryCheckpointer[counterState]()
	nodes := []Node[counterState]{
		{
			Name:  "boom",
			Run:   func(context.Context, counterState) (counterState, error) { return counterState{}, assertErr },
			Route: func(counterState) string { return "" },
		},
	}
	r := NewRunner(nodes, "boom", "test-ns", cp, logging.Nop{})
	_, lastNode, err := r.Run(context.Background(), "thread-3", counterState{})
	require.Error(t, err)
	assert.Equal(t, "boom", lastNode)
}

var assertErr = context.DeadlineExceeded
