package predictworkflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/rules"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/workflow"
)

type fixedModel struct{ p float64 }

func (f fixedModel) PredictProba([]float64) (float64, error) { return f.p, nil }

type stubGenerator struct{}

func (stubGenerator) GenerateMessage(context.Context, string, float64, []string, map[string]any) (string, error) {
	return "hi there", nil
}

type stubExecutor struct{ calls int }

func (s *stubExecutor) Execute(context.Context, string, domain.NudgeAction, float64, []string, string) error {
	s.calls++
	return nil
}

func buildTestWorkflow(t *testing.T, p float64) (*Workflow, *features.Store, *stubExecutor) {
	t.Helper()
	kv := kvstore.NewMemoryClient()
	fs := features.NewStore(kv, logging.Nop{})
	sc, err := scorer.New(fixedModel{p: p}, scorer.NewRuleExplainer())
	require.NoError(t, err)
	executor := &stubExecutor{}
	engine := rules.New(rules.DefaultRules(), stubGenerator{}, executor, logging.Nop{})
	return New(fs, sc, engine, logging.Nop{}), fs, executor
}

func TestPredictionWorkflowNoFeaturesErrors(t *testing.T) {
	wf, _, _ := buildTestWorkflow(t, 0.8)
	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "predict_u1", State{UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, final.Error)
	require.True(t, final.Completed)
}

func TestPredictionWorkflowTriggersNudgeWhenMatched(t *testing.T) {
	wf, fs, executor := buildTestWorkflow(t, 0.85)
	require.NoError(t, fs.Ingest("u1", features.FamilyBehavior, map[string]any{"days_last_login": 30}))

	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "predict_u1", State{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, final.Completed)
	require.NotNil(t, final.NudgeDecision)
	require.True(t, final.NudgeDecision.ShouldNudge)
	require.Greater(t, executor.calls, 0)
}

func TestPredictionWorkflowEndsWithoutNudgeWhenNoRuleMatches(t *testing.T) {
	wf, fs, executor := buildTestWorkflow(t, 0.5)
	require.NoError(t, fs.Ingest("u1", features.FamilyBehavior, map[string]any{"days_last_login": 1}))

	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "predict_u1", State{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, final.Completed)
	require.False(t, final.NudgeDecision.ShouldNudge)
	require.Equal(t, 0, executor.calls)
}
