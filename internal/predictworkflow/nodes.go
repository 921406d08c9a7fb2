package predictworkflow

import (
	"context"
	"fmt"

	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/rules"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/workflow"
)

const predictionNamespace = "predict"

// Workflow wires the Prediction Workflow's collaborators and builds its
// node graph, per §4.9.
type Workflow struct {
	featureStore *features.Store
	scorer       *scorer.Scorer
	rules        *rules.Engine
	logger       logging.Logger
}

// New builds a prediction Workflow.
func New(featureStore *features.Store, sc *scorer.Scorer, rulesEngine *rules.Engine, logger logging.Logger) *Workflow {
	return &Workflow{featureStore: featureStore, scorer: sc, rules: rulesEngine, logger: logger}
}

// Runner builds a workflow.Runner over this workflow's node graph.
func (w *Workflow) Runner(checkpointer workflow.Checkpointer[State]) *workflow.Runner[State] {
	nodes := []workflow.Node[State]{
		{Name: "retrieve_features", Run: w.retrieveFeatures, Route: func(s State) string {
			if s.Error != "" {
				return "error_handler"
			}
			return "predict_churn"
		}},
		{Name: "predict_churn", Run: w.predictChurn, Route: func(s State) string {
			if s.Error != "" {
				return "error_handler"
			}
			return "decide_nudge"
		}},
		{Name: "decide_nudge", Run: w.decideNudge, Route: func(s State) string {
			if s.Error != "" {
				return "error_handler"
			}
			if s.NudgeDecision != nil && s.NudgeDecision.ShouldNudge {
				return "generate_nudge"
			}
			return ""
		}},
		{Name: "generate_nudge", Run: w.generateNudge, Route: func(s State) string {
			if s.Error != "" {
				return "error_handler"
			}
			return "send_nudge"
		}},
		{Name: "send_nudge", Run: w.sendNudge, Route: func(State) string { return "" }},
		{Name: "error_handler", Run: errorHandler, Route: func(State) string { return "" }},
	}
	return workflow.NewRunner(nodes, "retrieve_features", predictionNamespace, checkpointer, w.logger)
}

func errorHandler(_ context.Context, s State) (State, error) {
	s.Completed = true
	s.CurrentStep = "error_handler"
	return s, nil
}

func appendMessage(s State, text string) State {
	s.Messages = append(s.Messages, Message{Role: "ai", Text: text})
	return s
}

// retrieveFeatures implements §4.9's "after retrieve_features: if
// empty/absent -> error" routing.
func (w *Workflow) retrieveFeatures(_ context.Context, s State) (State, error) {
	s.CurrentStep = "retrieve_features"
	feats, freshness, err := w.featureStore.RetrieveAll(s.UserID)
	if err != nil {
		s.Error = err.Error()
		return s, nil
	}
	if len(feats) == 0 {
		s.Error = "no features available for user"
		return s, nil
	}
	s.UserFeatures = feats
	s.FeatureFreshness = freshness
	s = appendMessage(s, fmt.Sprintf("retrieved %d feature fields", len(feats)))
	return s, nil
}

func (w *Workflow) predictChurn(_ context.Context, s State) (State, error) {
	s.CurrentStep = "predict_churn"
	pred, err := w.scorer.PredictChurn(s.UserFeatures)
	if err != nil {
		s.Error = err.Error()
		return s, nil
	}
	s.ChurnPrediction = &ChurnPrediction{
		Probability: pred.ChurnProbability,
		Segment:     string(pred.RiskSegment),
		Reasons:     pred.ChurnReasons,
		Confidence:  pred.ConfidenceScore,
	}
	s = appendMessage(s, fmt.Sprintf("churn probability %.2f (%s)", pred.ChurnProbability, pred.RiskSegment))
	return s, nil
}

func (w *Workflow) decideNudge(_ context.Context, s State) (State, error) {
	s.CurrentStep = "decide_nudge"
	rule, matched := w.rules.FindMatchingRule(s.ChurnPrediction.Probability, s.ChurnPrediction.Reasons)
	decision := NudgeDecision{ShouldNudge: matched}
	if matched {
		decision.RuleID = rule.RuleID
	}
	s.NudgeDecision = &decision
	if matched {
		s = appendMessage(s, fmt.Sprintf("matched rule %s, will nudge", rule.RuleID))
	} else {
		s = appendMessage(s, "no matching rule, skipping nudge")
		s.Completed = true
	}
	return s, nil
}

// generateNudge is a lightweight observability step: the actual message
// synthesis happens inside rules.Engine.Trigger, invoked from sendNudge,
// since the rules engine bundles "synthesize then act" into one call
// (§4.5). This node exists to give the workflow a distinct checkpoint
// between the decision and the side-effecting send, per §4.9's node list.
func (w *Workflow) generateNudge(_ context.Context, s State) (State, error) {
	s.CurrentStep = "generate_nudge"
	s = appendMessage(s, "preparing nudge message and actions")
	return s, nil
}

func (w *Workflow) sendNudge(ctx context.Context, s State) (State, error) {
	s.CurrentStep = "send_nudge"
	result, err := w.rules.Trigger(ctx, s.UserID, s.ChurnPrediction.Probability, s.ChurnPrediction.Reasons, s.UserFeatures)
	if err != nil {
		s.Error = err.Error()
		return s, nil
	}
	s.GeneratedNudge = &GeneratedNudge{Actions: result.NudgesTriggered}
	s = appendMessage(s, fmt.Sprintf("triggered %d nudge actions via rule %s", len(result.NudgesTriggered), result.RuleMatched))
	s.Completed = true
	return s, nil
}
