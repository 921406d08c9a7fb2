// Package actions implements C6: the rules.MessageGenerator and
// rules.ActionExecutor collaborators that the nudge rules engine invokes.
// It persists nudges, assigns coupons through the storefront client, and
// generates personalized messages through the LLM client, grounded on the
// teacher's reviewloop.go's "synthesize then act" pattern generalized from
// PR review comments to user-facing nudges.
package actions

import (
	"strings"
)

// couponBucket maps a keyword found in the churn reasons to a fallback
// coupon code bucket, per §4.6.1: when a rule's action doesn't carry an
// explicit coupon code, the executor picks one by matching reason keywords
// against this table, falling back to churnProbabilityFallbackLadder if
// nothing matches.
var couponBuckets = []struct {
	keywords []string
	code     string
	percent  float64
}{
	{keywords: []string{"cart", "abandon"}, code: "CARTBACK10", percent: 10},
	{keywords: []string{"price", "expensive", "cost"}, code: "SUMMER25", percent: 25},
	{keywords: []string{"inactive", "inactivity", "no login"}, code: "WELCOME_BACK20", percent: 20},
	{keywords: []string{"delivery", "shipping"}, code: "FREESHIP", percent: 0},
	{keywords: []string{"electronics"}, code: "ELECTRONICS15", percent: 15},
	{keywords: []string{"payment"}, code: "RETRY10", percent: 10},
}

// churnProbabilityFallbackLadder implements §4.6.1's deterministic
// fallback when no reason keyword matches: selection depends only on the
// churn probability, not chance, so the same (reasons, p) always assigns
// the same coupon.
var churnProbabilityFallbackLadder = []struct {
	threshold float64
	code      string
	percent   float64
}{
	{threshold: 0.9, code: "SUMMER25", percent: 25},
	{threshold: 0.7, code: "WELCOME_BACK20", percent: 20},
	{threshold: 0.5, code: "SAVE20", percent: 20},
}

const fallbackCouponCode = "WELCOME10"
const fallbackCouponPercent = 10

// pickCouponBucket implements §4.6.1's keyword-bucket-then-probability-
// fallback selection: the first bucket whose keyword appears in any reason
// (case-insensitive substring) wins; if none match, churnProbability
// walks a fixed threshold ladder (≥0.9→SUMMER25, ≥0.7→WELCOME_BACK20,
// ≥0.5→SAVE20, else WELCOME10).
func pickCouponBucket(reasons []string, churnProbability float64) (code string, percent float64) {
	for _, bucket := range couponBuckets {
		for _, reason := range reasons {
			lowered := strings.ToLower(reason)
			for _, kw := range bucket.keywords {
				if strings.Contains(lowered, kw) {
					return bucket.code, bucket.percent
				}
			}
		}
	}
	for _, rung := range churnProbabilityFallbackLadder {
		if churnProbability >= rung.threshold {
			return rung.code, rung.percent
		}
	}
	return fallbackCouponCode, fallbackCouponPercent
}
