// Package recoworkflow implements the Recommendations Workflow (C8): a
// staged pipeline from cart context through feature retrieval, churn
// estimation, vector similarity search, tiered discount ranking, and
// per-user caching. Grounded on server/poller.go's phase-ordered agent
// handling for the overall "run fixed stages, route on state" shape; the
// discount-tier table below is shaped after masumrpg-ecommerce-engine's
// pkg/discount tier-table calculators, even though none of that package's
// code is imported (it is a zero-dependency, pure-calculation package with
// nothing to wire to a third-party library).
package recoworkflow

import "math"

// discountTier is one segment's discount percentage bounds, per §4.8's
// rank_discount table.
type discountTier struct {
	min, max float64
}

var discountTiers = map[string]discountTier{
	"low":      {min: 0, max: 5},
	"medium":   {min: 5, max: 10},
	"high":     {min: 15, max: 20},
	"critical": {min: 20, max: 30},
}

// discountPercentFor returns the tier's midpoint, rounded down, per §4.8:
// "min, max, used = midpoint rounded down".
func discountPercentFor(segment string) float64 {
	tier, ok := discountTiers[segment]
	if !ok {
		return 0
	}
	return math.Floor((tier.min + tier.max) / 2)
}

// discountedPrice computes price * (1 - percent/100), rounded to 2
// decimals, per §4.8 step 5.
func discountedPrice(price, percent float64) float64 {
	return math.Round(price*(1-percent/100)*100) / 100
}
