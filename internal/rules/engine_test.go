package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/logging"
)

type fakeGenerator struct {
	message string
	err     error
}

func (f fakeGenerator) GenerateMessage(context.Context, string, float64, []string, map[string]any) (string, error) {
	return f.message, f.err
}

type recordingExecutor struct {
	executed []domain.NudgeAction
}

func (r *recordingExecutor) Execute(_ context.Context, _ string, action domain.NudgeAction, _ float64, _ []string, _ string) error {
	r.executed = append(r.executed, action)
	return nil
}

func TestCatchAllRuleMatchesAnyReasons(t *testing.T) {
	e := New(DefaultRules(), fakeGenerator{message: "hi"}, &recordingExecutor{}, logging.Nop{})
	rule, ok := e.FindMatchingRule(0.2, []string{"totally unrelated reason"})
	require.True(t, ok)
	assert.Equal(t, "low_risk_engagement", rule.RuleID)
}

func TestSubstringMatch(t *testing.T) {
	e := New(DefaultRules(), fakeGenerator{message: "hi"}, &recordingExecutor{}, logging.Nop{})
	rule, ok := e.FindMatchingRule(0.82, []string{"CART_ABANDONMENT"})
	require.True(t, ok)
	assert.Equal(t, [2]float64{0.8, 1.0}, rule.ChurnScoreRange)
}

func TestNoMatchReturnsNone(t *testing.T) {
	e := New(nil, fakeGenerator{message: "hi"}, &recordingExecutor{}, logging.Nop{})
	result, err := e.Trigger(context.Background(), "u1", 0.5, []string{"x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", result.RuleMatched)
	assert.Empty(t, result.NudgesTriggered)
}

func TestTriggerExecutesActionsInPriorityOrder(t *testing.T) {
	executor := &recordingExecutor{}
	e := New(DefaultRules(), fakeGenerator{message: "hi"}, executor, logging.Nop{})

	result, err := e.Trigger(context.Background(), "u1", 0.75, []string{"Inactive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "high_risk_inactive_user", result.RuleMatched)
	require.Len(t, executor.executed, 3)
	assert.Equal(t, domain.ActionCustomMessage, executor.executed[0].Type)
	assert.Equal(t, domain.ActionDiscountCoupon, executor.executed[1].Type)
	assert.Equal(t, domain.ActionPushNotification, executor.executed[2].Type)
}

func TestTriggerProceedsWithoutMessageOnGeneratorFailure(t *testing.T) {
	executor := &recordingExecutor{}
	e := New(DefaultRules(), fakeGenerator{err: assert.AnError}, executor, logging.Nop{})

	result, err := e.Trigger(context.Background(), "u1", 0.75, []string{"Inactive"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.NudgesTriggered)
}

func TestCartReasonMatchesMediumRiskCartRule(t *testing.T) {
	e := New(DefaultRules(), fakeGenerator{message: "hi"}, &recordingExecutor{}, logging.Nop{})
	rule, ok := e.FindMatchingRule(0.5, []string{"cart_abandonment"})
	require.True(t, ok)
	assert.Equal(t, "medium_risk_cart_abandonment", rule.RuleID)
}
