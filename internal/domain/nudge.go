package domain

import "time"

// NudgeActionType enumerates the action descriptor kinds a rule can emit.
type NudgeActionType string

const (
	ActionCustomMessage    NudgeActionType = "Custom Message"
	ActionDiscountCoupon   NudgeActionType = "Discount Coupon"
	ActionPushNotification NudgeActionType = "Push Notification"
	ActionEmail            NudgeActionType = "Email"
)

// Channel enumerates the delivery channel for a nudge action.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelApp   Channel = "app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// NudgeAction is one action descriptor attached to a matched rule.
type NudgeAction struct {
	Type            NudgeActionType `json:"type"`
	ContentTemplate string          `json:"content_template"`
	Channel         Channel         `json:"channel"`
	Priority        int             `json:"priority"`
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
	CouponCode      string          `json:"coupon_code,omitempty"`
}

// NudgeRule is a single ordered rule in the nudge rules engine's table.
type NudgeRule struct {
	RuleID          string        `json:"rule_id"`
	ChurnScoreRange [2]float64    `json:"churn_score_range"`
	ChurnReasons    []string      `json:"churn_reasons"`
	Nudges          []NudgeAction `json:"nudges"`
	// Priority is the explicit ordering used by FindMatchingRule, resolving
	// the open question about rule_N vs semantic-rule ordering: lower runs
	// first.
	Priority int `json:"priority"`
}

// Nudge is the persisted record of an executed nudge action.
type Nudge struct {
	NudgeID       string    `json:"nudge_id"`
	UserID        string    `json:"user_id"`
	Message       string    `json:"message"`
	Channel       Channel   `json:"channel"`
	NudgeType     string    `json:"nudge_type"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	DiscountValue *float64  `json:"discount_value,omitempty"`
	DiscountType  string    `json:"discount_type,omitempty"`
	Status        string    `json:"status"`
	SentAt        time.Time `json:"sent_at"`
}

// CustomMessage is the persisted personalized message record. Field names
// are abbreviated (churn_prob, user_ftrs) to fit the 15-character bin-name
// constraint the wrapped "data" encoding was designed to sidestep for
// everything else — these two fields predate that convention and are kept
// abbreviated for wire compatibility.
type CustomMessage struct {
	UserID       string             `json:"user_id"`
	MessageID    string             `json:"message_id"`
	Message      string             `json:"message"`
	ChurnProb    float64            `json:"churn_prob"`
	ChurnReasons []string           `json:"churn_reasons"`
	UserFeatures map[string]float64 `json:"user_ftrs"`
	CreatedAt    time.Time          `json:"created_at"`
	Status       string             `json:"status"`
	ReadAt       *time.Time         `json:"read_at,omitempty"`
	Channel      Channel            `json:"channel"`
	NudgeType    string             `json:"nudge_type,omitempty"`
	CouponCode   string             `json:"coupon_code,omitempty"`
}

const (
	MessageStatusGenerated = "generated"
	MessageStatusRead      = "read"
)
