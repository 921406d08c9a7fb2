package rules

import (
	"context"
	"sort"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/logging"
)

// MessageGenerator is the collaborator that synthesizes the personalized
// custom message always produced before running a matched rule's actions,
// per §4.5 step 2. Implemented by internal/actions.
type MessageGenerator interface {
	GenerateMessage(ctx context.Context, userID string, churnProbability float64, reasons []string, features map[string]any) (string, error)
}

// ActionExecutor runs one nudge action's side effects (coupon assignment,
// persistence), per §4.6. Implemented by internal/actions.
type ActionExecutor interface {
	Execute(ctx context.Context, userID string, action domain.NudgeAction, churnProbability float64, reasons []string, message string) error
}

// TriggerResult is the outcome of Trigger, per §4.5's signature.
type TriggerResult struct {
	NudgesTriggered []domain.NudgeAction
	RuleMatched     string
}

// Engine is the nudge rules engine (C5), holding an immutable, explicitly
// prioritized rule table (the resolved Open Question from SPEC_FULL.md §9:
// priority is a static field on each rule, not derived from rule_id
// parsing).
type Engine struct {
	rules      []domain.NudgeRule
	generator  MessageGenerator
	executor   ActionExecutor
	logger     logging.Logger
}

// New builds an Engine. rules is sorted by Priority ascending once, at
// construction, so FindMatchingRule never re-sorts per call.
func New(rules []domain.NudgeRule, generator MessageGenerator, executor ActionExecutor, logger logging.Logger) *Engine {
	sorted := make([]domain.NudgeRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Engine{rules: sorted, generator: generator, executor: executor, logger: logger}
}

// Rules returns the engine's rule table, in priority order, for the
// introspection endpoints.
func (e *Engine) Rules() []domain.NudgeRule {
	return e.rules
}

// RuleByID returns a single rule for the /nudge/rules/{id} endpoint.
func (e *Engine) RuleByID(id string) (domain.NudgeRule, bool) {
	for _, r := range e.rules {
		if r.RuleID == id {
			return r, true
		}
	}
	return domain.NudgeRule{}, false
}

// FindMatchingRule implements §4.5's matching algorithm: rules are tried in
// priority order; the first rule whose score range contains p and whose
// reasons (or catch-all empty list) match any input reason wins.
func (e *Engine) FindMatchingRule(p float64, reasons []string) (domain.NudgeRule, bool) {
	for _, rule := range e.rules {
		if p < rule.ChurnScoreRange[0] || p > rule.ChurnScoreRange[1] {
			continue
		}
		if anyReasonMatches(rule.ChurnReasons, reasons) {
			return rule, true
		}
	}
	return domain.NudgeRule{}, false
}

// Trigger implements §4.5's decision + execution flow: find the matching
// rule, always synthesize a personalized message first, then run each
// action in priority order. Action execution errors are logged and do not
// abort remaining actions (fail-open on best-effort side effects, per §7).
func (e *Engine) Trigger(ctx context.Context, userID string, p float64, reasons []string, features map[string]any) (TriggerResult, error) {
	rule, matched := e.FindMatchingRule(p, reasons)
	if !matched {
		return TriggerResult{NudgesTriggered: nil, RuleMatched: "none"}, nil
	}

	message, err := e.generator.GenerateMessage(ctx, userID, p, reasons, features)
	if err != nil {
		// LLMTruncation on the nudge path logs and proceeds without a
		// message, per §7.
		e.logger.Warn("rules: message generation failed, proceeding without it", "user_id", userID, "error", err.Error())
		message = ""
	}

	actions := make([]domain.NudgeAction, len(rule.Nudges))
	copy(actions, rule.Nudges)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })

	triggered := make([]domain.NudgeAction, 0, len(actions))
	for _, action := range actions {
		if err := e.executor.Execute(ctx, userID, action, p, reasons, message); err != nil {
			e.logger.Error("rules: action execution failed", "user_id", userID, "action_type", action.Type, "error", err.Error())
			continue
		}
		triggered = append(triggered, action)
	}

	return TriggerResult{NudgesTriggered: triggered, RuleMatched: rule.RuleID}, nil
}
