// Package domain holds the record shapes shared across the platform: the
// storefront-owned catalog mirror, coupons and their assignments, nudges,
// custom messages, and the recommendation cache. Field layouts follow
// Cheertaboi-Billing-system-coupon-microservice's internal/models/coupon.go
// for the coupon/user-coupon shapes, generalized to this domain's richer
// product and nudge records.
package domain

import "time"

// Product mirrors the storefront's catalog entry, plus the synthesized
// embedding_text used by the vector indexer.
type Product struct {
	ProductID          string            `json:"product_id"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Category           string            `json:"category"`
	Subcategory        string            `json:"subcategory"`
	Brand              string            `json:"brand"`
	Price              float64           `json:"price"`
	OriginalPrice      float64           `json:"original_price"`
	DiscountPercentage float64           `json:"discount_percentage"`
	Rating             float64           `json:"rating"`
	ReviewCount        int               `json:"review_count"`
	StockQuantity      int               `json:"stock_quantity"`
	Tags               []string          `json:"tags"`
	Images             []string          `json:"images"`
	Specifications     map[string]string `json:"specifications"`
	IsFeatured         bool              `json:"is_featured"`
	IsActive           bool              `json:"is_active"`
	EmbeddingText      string            `json:"embedding_text"`
}

// CartItem is the compact product reference carried in the realtime feature
// family and in cart-load recommendation requests.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Brand     string  `json:"brand"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// BuildEmbeddingText synthesizes the text string the vector indexer
// computes an embedding from, per §4.7: "name | description | Category: … |
// Subcategory: … | Brand: … | Tags: …".
func (p *Product) BuildEmbeddingText() string {
	tags := ""
	for i, t := range p.Tags {
		if i > 0 {
			tags += ", "
		}
		tags += t
	}
	return p.Name + " | " + p.Description +
		" | Category: " + p.Category +
		" | Subcategory: " + p.Subcategory +
		" | Brand: " + p.Brand +
		" | Tags: " + tags
}

// DiscountType enumerates the three coupon discount shapes.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixed       DiscountType = "fixed"
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Coupon is the fixed catalog entry a coupon code resolves to.
type Coupon struct {
	CouponID             string       `json:"coupon_id"`
	Code                 string       `json:"code"`
	Name                 string       `json:"name"`
	Description          string       `json:"description"`
	DiscountType         DiscountType `json:"discount_type"`
	DiscountValue        float64      `json:"discount_value"`
	MinOrderValue        float64      `json:"min_order_val"`
	MaxDiscount          float64      `json:"max_discount"`
	UsageLimit           int          `json:"usage_limit"`
	UsageCount           int          `json:"usage_count"`
	ValidFrom            time.Time    `json:"valid_from"`
	ValidUntil           time.Time    `json:"valid_until"`
	IsActive             bool         `json:"is_active"`
	ApplicableCategories []string     `json:"applicable_categories"`
	ApplicableProducts   []string     `json:"applicable_products"`
}

// Validate enforces the coupon invariants from §3: valid_from <= valid_until
// and usage_count <= usage_limit when a limit is set.
func (c *Coupon) Validate() error {
	if c.ValidFrom.After(c.ValidUntil) {
		return errInvalidWindow
	}
	if c.UsageLimit > 0 && c.UsageCount > c.UsageLimit {
		return errUsageExceeded
	}
	return nil
}

// UserCouponStatus enumerates the lifecycle of an assignment record.
type UserCouponStatus string

const (
	UserCouponAvailable UserCouponStatus = "available"
	UserCouponUsed      UserCouponStatus = "used"
	UserCouponExpired   UserCouponStatus = "expired"
)

// UserCouponSource records what triggered the assignment.
type UserCouponSource string

const (
	SourceNudge      UserCouponSource = "nudge"
	SourceGeneral    UserCouponSource = "general"
	SourcePromotion  UserCouponSource = "promotion"
)

// UserCoupon is the per-user assignment record. At most one Available
// record may exist per (UserID, CouponID) — enforced by the actions
// package's idempotent assignment path, not by this struct.
type UserCoupon struct {
	UserCouponID string           `json:"user_coupon_id"`
	UserID       string           `json:"user_id"`
	CouponID     string           `json:"coupon_id"`
	Source       UserCouponSource `json:"source"`
	NudgeID      string           `json:"nudge_id,omitempty"`
	ChurnScore   *float64         `json:"churn_score,omitempty"`
	Status       UserCouponStatus `json:"status"`
	AssignedAt   time.Time        `json:"assigned_at"`
	UsedAt       *time.Time       `json:"used_at,omitempty"`
	OrderID      string           `json:"order_id,omitempty"`
}
