// Package vectorizer implements the feature vectorizer (C3): it maps a
// sparse feature map into the fixed-length numeric vector the persisted
// model contract expects, per §4.3.
package vectorizer

// NumSlots is the model's fixed feature-vector length.
const NumSlots = 36

// slot names the 36 ordered feature slots used for numeric/boolean
// features. Index position is the model contract; it must match the
// training build exactly.
var slot = []string{
	"acc_age_days", "member_dur",
	"days_last_login", "days_last_purch", "sess_7d", "sess_30d",
	"avg_sess_dur", "ctr_10_sess", "cart_abandon", "wishlist_ratio", "content_engage",
	"avg_order_val", "orders_6m", "purch_freq_90d", "last_hv_purch", "refund_rate", "discount_dep",
	"push_open_rate", "email_ctr", "inapp_ctr", "promo_resp_time",
	"tickets_90d", "avg_ticket_res", "csat_score", "refund_req",
	"curr_sess_clk", "checkout_time", "cart_no_buy", "bounce_flag",
	"loyalty_tier", "geo_location", "device_type", "pref_payment", "lang_pref",
	"sub_pay_status", "retention_resp",
}

func init() {
	if len(slot) != NumSlots {
		panic("vectorizer: slot table length drifted from NumSlots")
	}
}

var slotIndex = func() map[string]int {
	m := make(map[string]int, len(slot))
	for i, name := range slot {
		m[name] = i
	}
	return m
}()

// categoricalFeatures names the subset of slots that hold a fixed
// string→int encoding rather than a raw numeric value.
var categoricalFeatures = map[string]map[string]int{
	"loyalty_tier":   {"bronze": 1, "silver": 2, "gold": 3, "platinum": 4},
	"geo_location":   {"us": 1, "eu": 2, "apac": 3, "latam": 4},
	"device_type":    {"mobile": 1, "desktop": 2, "tablet": 3},
	"pref_payment":   {"card": 1, "wallet": 2, "bank_transfer": 3, "cod": 4},
	"lang_pref":      {"en": 1, "es": 2, "fr": 3, "de": 4},
	"sub_pay_status": {"active": 1, "past_due": 2, "cancelled": 3},
	"retention_resp": {"positive": 1, "neutral": 2, "negative": 3},
}

// Vectorize maps features into a fixed-length float64 vector of length
// NumSlots, per §4.3:
//  1. zero-initialize
//  2. numeric/boolean features write float(value) into their slot; bool
//     true→1, false→0; missing/nil leaves the slot at 0
//  3. categorical features look up their fixed mapping; unknown → 0
func Vectorize(features map[string]any) []float64 {
	vec := make([]float64, NumSlots)

	for name, value := range features {
		idx, ok := slotIndex[name]
		if !ok {
			continue // unknown keys are ignored
		}
		if mapping, isCategorical := categoricalFeatures[name]; isCategorical {
			vec[idx] = float64(encodeCategorical(mapping, value))
			continue
		}
		vec[idx] = toFloat(value)
	}

	return vec
}

func encodeCategorical(mapping map[string]int, value any) int {
	s, ok := value.(string)
	if !ok {
		return 0
	}
	return mapping[s] // zero value for unknown strings
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
