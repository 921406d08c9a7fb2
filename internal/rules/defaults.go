package rules

import "github.com/quickmart/churnguard/internal/domain"

func pct(v float64) *float64 { return &v }

// DefaultRules returns the platform's built-in rule table, carried over
// from the reference nudge engine's NUDGE_RULES. Priority is assigned
// explicitly here (ascending, lower runs first) rather than parsed from the
// rule_id, resolving the Open Question in SPEC_FULL.md §9: the three
// specialty semantic rules (one of them the low_risk_engagement catch-all)
// run first, then the numbered legacy
// rules from rule_10 down to rule_1 (preserving the source's "highest
// numeric suffix first" behavior without depending on string parsing).
func DefaultRules() []domain.NudgeRule {
	return []domain.NudgeRule{
		{
			RuleID:          "high_risk_inactive_user",
			ChurnScoreRange: [2]float64{0.7, 1.0},
			ChurnReasons:    []string{"Inactive", "No purchase", "High risk factor"},
			Priority:        0,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionCustomMessage, ContentTemplate: "AI-Generated Personalized Message", Channel: domain.ChannelSMS, Priority: 1},
				{Type: domain.ActionDiscountCoupon, ContentTemplate: "20% Off Welcome Back", Channel: domain.ChannelApp, Priority: 2, DiscountPercent: pct(20), CouponCode: "WELCOME20"},
				{Type: domain.ActionPushNotification, ContentTemplate: "We miss you! Get 20% off your next order", Channel: domain.ChannelPush, Priority: 3},
			},
		},
		{
			RuleID:          "low_risk_engagement",
			ChurnScoreRange: [2]float64{0.0, 0.4},
			ChurnReasons:    nil, // catch-all
			Priority:        1,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionCustomMessage, ContentTemplate: "AI-Generated Engagement Message", Channel: domain.ChannelSMS, Priority: 1},
			},
		},
		{
			RuleID:          "medium_risk_cart_abandonment",
			ChurnScoreRange: [2]float64{0.3, 0.6},
			ChurnReasons:    []string{"cart", "abandon"},
			Priority:        2,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionCustomMessage, ContentTemplate: "AI-Generated Cart Reminder", Channel: domain.ChannelSMS, Priority: 1},
			},
		},
		{
			RuleID:          "rule_10",
			ChurnScoreRange: [2]float64{0.8, 1.0},
			ChurnReasons:    []string{"PAYMENT_FAILURE", "CART_ABANDONMENT"},
			Priority:        3,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 10", Channel: domain.ChannelPush, Priority: 1},
				{Type: domain.ActionDiscountCoupon, ContentTemplate: "Template 10", Channel: domain.ChannelEmail, Priority: 2},
				{Type: domain.ActionEmail, ContentTemplate: "Template 10", Channel: domain.ChannelEmail, Priority: 3},
			},
		},
		{
			RuleID:          "rule_9",
			ChurnScoreRange: [2]float64{0.75, 0.95},
			ChurnReasons:    []string{"DELIVERY_ISSUES", "PRICE_SENSITIVITY"},
			Priority:        4,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 9", Channel: domain.ChannelPush, Priority: 1},
			},
		},
		{
			RuleID:          "rule_8",
			ChurnScoreRange: [2]float64{0.6, 0.8},
			ChurnReasons:    []string{"CART_ABANDONMENT", "LOW_ENGAGEMENT"},
			Priority:        5,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionCustomMessage, ContentTemplate: "AI-Generated Cart Abandonment Message", Channel: domain.ChannelSMS, Priority: 1},
				{Type: domain.ActionEmail, ContentTemplate: "Template 8", Channel: domain.ChannelEmail, Priority: 2},
				{Type: domain.ActionDiscountCoupon, ContentTemplate: "Template 8", Channel: domain.ChannelEmail, Priority: 3},
			},
		},
		{
			RuleID:          "rule_7",
			ChurnScoreRange: [2]float64{0.7, 0.9},
			ChurnReasons:    []string{"INACTIVITY"},
			Priority:        6,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 7", Channel: domain.ChannelPush, Priority: 1},
			},
		},
		{
			RuleID:          "rule_6",
			ChurnScoreRange: [2]float64{0.65, 0.8},
			ChurnReasons:    []string{"PRODUCT_AVAILABILITY"},
			Priority:        7,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 6", Channel: domain.ChannelPush, Priority: 1},
			},
		},
		{
			RuleID:          "rule_5",
			ChurnScoreRange: [2]float64{0.85, 1.0},
			ChurnReasons:    []string{"PAYMENT_FAILURE"},
			Priority:        8,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 5", Channel: domain.ChannelPush, Priority: 1},
				{Type: domain.ActionEmail, ContentTemplate: "Template 5", Channel: domain.ChannelEmail, Priority: 2},
			},
		},
		{
			RuleID:          "rule_4",
			ChurnScoreRange: [2]float64{0.6, 0.75},
			ChurnReasons:    []string{"PRICE_SENSITIVITY"},
			Priority:        9,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionDiscountCoupon, ContentTemplate: "Template 4", Channel: domain.ChannelEmail, Priority: 1},
			},
		},
		{
			RuleID:          "rule_3",
			ChurnScoreRange: [2]float64{0.7, 0.9},
			ChurnReasons:    []string{"LOW_ENGAGEMENT"},
			Priority:        10,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionEmail, ContentTemplate: "Template 3", Channel: domain.ChannelEmail, Priority: 1},
			},
		},
		{
			RuleID:          "rule_2",
			ChurnScoreRange: [2]float64{0.8, 1.0},
			ChurnReasons:    []string{"CART_ABANDONMENT"},
			Priority:        11,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionCustomMessage, ContentTemplate: "AI-Generated Cart Recovery Message", Channel: domain.ChannelSMS, Priority: 1},
				{Type: domain.ActionPushNotification, ContentTemplate: "Template 2", Channel: domain.ChannelPush, Priority: 2},
				{Type: domain.ActionDiscountCoupon, ContentTemplate: "Template 2", Channel: domain.ChannelEmail, Priority: 3},
			},
		},
		{
			RuleID:          "rule_1",
			ChurnScoreRange: [2]float64{0.6, 0.8},
			ChurnReasons:    []string{"INACTIVITY", "DELIVERY_ISSUES"},
			Priority:        12,
			Nudges: []domain.NudgeAction{
				{Type: domain.ActionEmail, ContentTemplate: "Template 1", Channel: domain.ChannelEmail, Priority: 1},
			},
		},
	}
}
