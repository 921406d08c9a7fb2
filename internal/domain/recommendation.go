package domain

import "time"

// RecommendedProduct is one entry in a recommendation response.
type RecommendedProduct struct {
	ProductID            string  `json:"product_id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	Category             string  `json:"category"`
	Brand                string  `json:"brand"`
	Price                float64 `json:"price"`
	OriginalPrice        float64 `json:"original_price,omitempty"`
	DiscountedPrice      float64 `json:"discounted_price"`
	DiscountPercentage   int     `json:"discount_percentage"`
	Rating               float64 `json:"rating"`
	ReviewCount          int     `json:"review_count"`
	Image                string  `json:"image,omitempty"`
	SimilarityScore      float64 `json:"similarity_score"`
	RecommendationReason string  `json:"recommendation_reason"`
}

// RecommendationCache is the per-user cached result written by the
// recommendations workflow and read back by the GET endpoint.
type RecommendationCache struct {
	UserID            string                `json:"user_id"`
	Recommendations   []RecommendedProduct  `json:"recommendations"`
	ChurnRisk         string                `json:"churn_risk"`
	ChurnProbability  float64               `json:"churn_probability"`
	CartItemCount     int                   `json:"cart_item_count"`
	CreatedAt         time.Time             `json:"created_at"`
}
