// Package rules implements the nudge rules engine (C5): rule matching over
// (score range × reason set) with substring and semantic-synonym matching,
// and triggering of the matched rule's actions, per §4.5.
package rules

import "strings"

// synonymGroups is the small semantic synonym table from §4.5: reasons in
// the same group are considered equivalent for matching purposes even
// without a literal substring relationship.
var synonymGroups = [][]string{
	{"inactive", "inactivity", "no login", "not logged in"},
	{"cart", "cart abandonment", "abandoned cart", "cart_abandonment"},
	{"price", "expensive", "pricing", "cost"},
	{"support", "ticket", "complaint"},
	{"satisfaction", "csat", "dissatisfied"},
	{"refund", "return"},
}

// reasonsMatch reports whether a single rule-reason matches a single
// input-reason, per §4.5 step 3: a case-insensitive substring relationship
// in either direction, or co-membership in a synonym group.
func reasonsMatch(ruleReason, inputReason string) bool {
	a := strings.ToLower(strings.TrimSpace(ruleReason))
	b := strings.ToLower(strings.TrimSpace(inputReason))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return sameSynonymGroup(a, b)
}

func sameSynonymGroup(a, b string) bool {
	for _, group := range synonymGroups {
		var hasA, hasB bool
		for _, term := range group {
			if strings.Contains(a, term) || strings.Contains(term, a) {
				hasA = true
			}
			if strings.Contains(b, term) || strings.Contains(term, b) {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// anyReasonMatches reports whether any rule-reason matches any input
// reason, per §4.5 step 3. An empty rule-reason list is a catch-all and
// matches any input reasons (including none).
func anyReasonMatches(ruleReasons, inputReasons []string) bool {
	if len(ruleReasons) == 0 {
		return true
	}
	for _, rr := range ruleReasons {
		for _, ir := range inputReasons {
			if reasonsMatch(rr, ir) {
				return true
			}
		}
	}
	return false
}
