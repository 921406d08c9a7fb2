// Package predictworkflow implements the Prediction Workflow (C9): retrieve
// features → predict churn → decide whether to nudge → generate and send a
// nudge, with a terminal error_handler branch, checkpointed per §4.9.
// Grounded on server/hitl.go's fixed-phase state machine (planning →
// awaiting-review → implementing), generalized from a three-phase review
// gate to this workflow's five named nodes.
package predictworkflow

import "github.com/quickmart/churnguard/internal/domain"

// Message is one observability entry appended by a node, per §4.9: "each
// node appends an AI-role reasoning message to an in-state message list".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// State is the Prediction Workflow's checkpointed state.
type State struct {
	UserID           string             `json:"user_id"`
	UserFeatures     map[string]any     `json:"user_features,omitempty"`
	FeatureFreshness string             `json:"feature_freshness,omitempty"`
	ChurnPrediction  *ChurnPrediction   `json:"churn_prediction,omitempty"`
	NudgeDecision    *NudgeDecision     `json:"nudge_decision,omitempty"`
	GeneratedNudge   *GeneratedNudge    `json:"generated_nudge,omitempty"`
	CurrentStep      string             `json:"current_step"`
	Error            string             `json:"error,omitempty"`
	Completed        bool               `json:"completed"`
	Messages         []Message          `json:"messages"`
}

// ChurnPrediction is the state's snapshot of C4's output.
type ChurnPrediction struct {
	Probability float64  `json:"probability"`
	Segment     string   `json:"segment"`
	Reasons     []string `json:"reasons"`
	Confidence  float64  `json:"confidence"`
}

// NudgeDecision records whether the workflow decided to nudge and why.
type NudgeDecision struct {
	ShouldNudge bool   `json:"should_nudge"`
	RuleID      string `json:"rule_id,omitempty"`
}

// GeneratedNudge records the nudge actions triggered for this user.
type GeneratedNudge struct {
	Actions []domain.NudgeAction `json:"actions"`
}
