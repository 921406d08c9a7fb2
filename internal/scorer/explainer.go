package scorer

import (
	"fmt"
	"math"
	"sort"
)

// Contribution is one feature's signed influence on a single prediction.
type Contribution struct {
	Feature string
	Value   float64
}

// Explainer decomposes a single prediction into human-readable churn
// reasons, per the "Attribution with optional explainer → strategy
// variants" design note: two implementations exist, selected once at
// Scorer construction, never branched on per-request.
type Explainer interface {
	Explain(features map[string]any, vector []float64) []string
}

// phraseTable maps a feature name to a phrase-building function, used by
// both explainer strategies to render a human-readable reason.
var phraseTable = map[string]func(features map[string]any) string{
	"days_last_login": func(f map[string]any) string {
		return fmt.Sprintf("Inactive for %s days", formatIntFeature(f, "days_last_login"))
	},
	"cart_abandon": func(f map[string]any) string {
		return "High cart abandonment rate"
	},
	"refund_rate": func(f map[string]any) string {
		return "Elevated refund rate"
	},
	"csat_score": func(f map[string]any) string {
		return "Low customer satisfaction score"
	},
	"sess_7d": func(f map[string]any) string {
		return "Low recent session activity"
	},
	"discount_dep": func(f map[string]any) string {
		return "High dependency on discounts"
	},
	"orders_6m": func(f map[string]any) string {
		return "No recent orders"
	},
	"tickets_90d": func(f map[string]any) string {
		return "Frequent support tickets"
	},
}

func formatIntFeature(f map[string]any, name string) string {
	v, ok := f[name]
	if !ok {
		return "several"
	}
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int(n))
	case int:
		return fmt.Sprintf("%d", n)
	default:
		return "several"
	}
}

// AttributionFunc computes signed per-feature contributions for a single
// prediction. The explainer holds a handle to a pre-computed explainer
// artifact; this module expresses that handle as a function so the
// concrete SHAP-style backend stays pluggable.
type AttributionFunc func(vector []float64) []Contribution

// attributionExplainer is the primary explanation strategy: it ranks
// features by attribution magnitude and keeps the top-5 churn-increasing
// ones, per §4.4 step 5.
type attributionExplainer struct {
	attribute AttributionFunc
}

// NewAttributionExplainer builds an Explainer backed by a real attribution
// function.
func NewAttributionExplainer(attribute AttributionFunc) Explainer {
	return &attributionExplainer{attribute: attribute}
}

func (e *attributionExplainer) Explain(features map[string]any, vector []float64) []string {
	contributions := e.attribute(vector)

	positive := make([]Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.Value > 0 {
			positive = append(positive, c)
		}
	}
	sort.Slice(positive, func(i, j int) bool {
		return math.Abs(positive[i].Value) > math.Abs(positive[j].Value)
	})
	if len(positive) > 5 {
		positive = positive[:5]
	}

	reasons := make([]string, 0, len(positive))
	for _, c := range positive {
		if phrase, ok := phraseTable[c.Feature]; ok {
			reasons = append(reasons, phrase(features))
		}
	}
	return reasons
}

// ruleExplainer is the fallback explanation strategy used when no
// attribution artifact is available: a small set of independent,
// threshold-firing rules over the same feature map, per §4.4 step 5.
type ruleExplainer struct{}

// NewRuleExplainer builds the hand-written threshold-rule fallback
// Explainer.
func NewRuleExplainer() Explainer {
	return &ruleExplainer{}
}

func (*ruleExplainer) Explain(features map[string]any, _ []float64) []string {
	var reasons []string

	if n := asFloat(features["abandon_count"]); n >= 3 {
		reasons = append(reasons, "Abandoned cart 3 times recently")
	} else if n >= 1 {
		reasons = append(reasons, fmt.Sprintf("Abandoned cart %d time(s) recently", int(n)))
	}
	if d := asFloat(features["days_last_login"]); d >= 14 {
		reasons = append(reasons, fmt.Sprintf("Inactive for %d days", int(d)))
	}
	if r := asFloat(features["cart_abandon"]); r >= 0.5 {
		reasons = append(reasons, "High cart abandonment rate")
	}
	if r := asFloat(features["refund_rate"]); r >= 0.2 {
		reasons = append(reasons, "Elevated refund rate")
	}
	if c := asFloat(features["csat_score"]); c > 0 && c < 3 {
		reasons = append(reasons, "Low customer satisfaction score")
	}
	if o := asFloat(features["orders_6m"]); o == 0 {
		reasons = append(reasons, "No recent orders")
	}
	if s := asFloat(features["sess_7d"]); s == 0 {
		reasons = append(reasons, "Low recent session activity")
	}

	return reasons
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
