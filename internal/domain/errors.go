package domain

import "github.com/pkg/errors"

// Sentinel errors, declared per package and checked with errors.Is,
// mirroring the sentinel style used throughout the store/kvstore package of
// the teacher plugin.
var (
	errInvalidWindow = errors.New("coupon valid_from is after valid_until")
	errUsageExceeded = errors.New("coupon usage_count exceeds usage_limit")
)
