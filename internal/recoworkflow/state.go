package recoworkflow

import (
	"time"

	"github.com/quickmart/churnguard/internal/domain"
)

// State is the Recommendations Workflow's checkpointed state, threaded
// through get_cart → get_features → estimate_churn → vector_search →
// rank_discount → store_recommendations, per §4.8.
type State struct {
	UserID           string             `json:"user_id"`
	CartItems        []domain.CartItem  `json:"cart_items"`
	CartTotal        float64            `json:"cart_total"`
	Features         map[string]any     `json:"features"`
	ChurnProbability float64            `json:"churn_probability"`
	RiskSegment      string             `json:"risk_segment"`
	Candidates       []candidateProduct `json:"candidates"`
	Recommendations  []domain.RecommendedProduct `json:"recommendations"`
	Error            string             `json:"error,omitempty"`
	Completed        bool               `json:"completed"`
	CreatedAt        time.Time          `json:"created_at"`
}

// candidateProduct is an intermediate vector-search hit before discount
// ranking is applied.
type candidateProduct struct {
	Product domain.Product `json:"product"`
	Score   float64        `json:"score"`
}
