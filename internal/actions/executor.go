package actions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/storefront"
)

const (
	nudgesSet      = "nudges"
	couponsSet     = "coupons"
	userCouponsSet = "user_coupons"
	messagesSet    = "custom_user_messages"

	couponValidityDays = 7
)

// Executor implements rules.ActionExecutor (C6.1/C6.3): it assigns coupons
// through the storefront client, persists the nudge and, for Custom
// Message actions, the CustomMessage record. Assignment is idempotent per
// §4.6.3: at most one Available UserCoupon per (user, coupon code).
type Executor struct {
	kv         kvstore.Client
	storefront storefront.Client
	clock      func() time.Time
	logger     logging.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(kv kvstore.Client, sf storefront.Client, logger logging.Logger) *Executor {
	return &Executor{kv: kv, storefront: sf, clock: time.Now, logger: logger}
}

// Execute implements rules.ActionExecutor.
func (e *Executor) Execute(ctx context.Context, userID string, action domain.NudgeAction, churnProbability float64, reasons []string, message string) error {
	nudge := domain.Nudge{
		NudgeID:   uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Channel:   action.Channel,
		NudgeType: string(action.Type),
		Status:    "sent",
		SentAt:    e.clock(),
	}

	switch action.Type {
	case domain.ActionDiscountCoupon:
		if err := e.assignCoupon(ctx, userID, action, churnProbability, reasons, &nudge); err != nil {
			return errors.Wrap(err, "actions: assign coupon")
		}
	case domain.ActionCustomMessage:
		if err := e.persistCustomMessage(userID, message, churnProbability, reasons, action); err != nil {
			return errors.Wrap(err, "actions: persist custom message")
		}
	}

	if _, err := kvstore.PutWrapped(e.kv, nudgesSet, userID+"_"+nudge.NudgeID, nudge); err != nil {
		return errors.Wrap(err, "actions: persist nudge")
	}
	return nil
}

// assignCoupon resolves a coupon code (explicit on the action, or picked
// from the reason-keyword buckets), then idempotently assigns it to the
// user through the storefront client, per §4.6.1 and §4.6.3.
func (e *Executor) assignCoupon(ctx context.Context, userID string, action domain.NudgeAction, churnProbability float64, reasons []string, nudge *domain.Nudge) error {
	code := action.CouponCode
	percent := 0.0
	if action.DiscountPercent != nil {
		percent = *action.DiscountPercent
	}
	if code == "" {
		code, percent = pickCouponBucket(reasons, churnProbability)
	}

	if err := e.ensureCouponCatalogEntry(code, percent); err != nil {
		return errors.Wrap(err, "actions: persist coupon catalog entry")
	}

	// user_coupons records are wrapped (single "data" bin), so a field-level
	// QueryByField can't see into them; scan and decode instead, per §4.1's
	// wrapped-record access pattern.
	existing, err := e.kv.Scan(userCouponsSet, 0)
	if err != nil {
		return errors.Wrap(err, "actions: check existing coupon assignment")
	}
	for _, bins := range existing {
		raw, ok := bins["data"].(string)
		if !ok {
			continue
		}
		var uc domain.UserCoupon
		if err := json.Unmarshal([]byte(raw), &uc); err != nil {
			continue
		}
		if uc.UserID == userID && uc.CouponID == code && uc.Status == domain.UserCouponAvailable {
			nudge.CouponCode = code
			nudge.DiscountValue = &percent
			return nil
		}
	}

	resp, err := e.storefront.AssignCoupon(ctx, storefront.AssignCouponRequest{
		UserID:          userID,
		CouponCode:      code,
		DiscountPercent: percent,
		ValidDays:       couponValidityDays,
	})
	if err != nil {
		return err
	}

	score := churnProbability
	uc := domain.UserCoupon{
		UserCouponID: resp.UserCouponID,
		UserID:       userID,
		CouponID:     code,
		Source:       domain.SourceNudge,
		NudgeID:      nudge.NudgeID,
		ChurnScore:   &score,
		Status:       domain.UserCouponAvailable,
		AssignedAt:   e.clock(),
	}
	if _, err := kvstore.PutWrapped(e.kv, userCouponsSet, uc.UserCouponID, uc); err != nil {
		return errors.Wrap(err, "actions: persist user coupon")
	}

	nudge.CouponCode = code
	nudge.DiscountValue = &percent
	return nil
}

// ensureCouponCatalogEntry upserts the fixed catalog record a coupon code
// resolves to, per §4.6.3's "a second record in coupons ... also created".
// Keyed by code rather than a fresh UUID: the bucket/fallback-ladder codes
// are a small fixed catalog, so repeat assignments of the same code
// idempotently refresh the same catalog entry instead of accumulating
// duplicates.
func (e *Executor) ensureCouponCatalogEntry(code string, percent float64) error {
	now := e.clock()
	coupon := domain.Coupon{
		CouponID:     code,
		Code:         code,
		DiscountType: domain.DiscountPercentage,
		DiscountValue: percent,
		ValidFrom:    now,
		ValidUntil:   now.Add(couponValidityDays * 24 * time.Hour),
		IsActive:     true,
	}
	if err := coupon.Validate(); err != nil {
		return err
	}
	_, err := kvstore.PutWrapped(e.kv, couponsSet, coupon.CouponID, coupon)
	return err
}

func (e *Executor) persistCustomMessage(userID, message string, churnProbability float64, reasons []string, action domain.NudgeAction) error {
	msg := domain.CustomMessage{
		UserID:       userID,
		MessageID:    uuid.NewString(),
		Message:      message,
		ChurnProb:    churnProbability,
		ChurnReasons: reasons,
		CreatedAt:    e.clock(),
		Status:       domain.MessageStatusGenerated,
		Channel:      action.Channel,
		NudgeType:    string(action.Type),
	}
	_, err := kvstore.PutWrapped(e.kv, messagesSet, userID+"_"+msg.MessageID, msg)
	return err
}
