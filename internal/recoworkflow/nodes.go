package recoworkflow

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/vectorstore"
	"github.com/quickmart/churnguard/internal/workflow"
)

const recommendationsNamespace = "user_recommendations"

var fallbackQueries = []string{"trending popular", "electronics gadgets", "home kitchen essentials"}

// Workflow wires the Recommendations Workflow's collaborators and builds
// its node graph, per §4.8.
type Workflow struct {
	featureStore *features.Store
	scorer       *scorer.Scorer
	vectors      *vectorstore.Store
	kv           kvstore.Client
	logger       logging.Logger
}

// New builds a recommendations Workflow.
func New(featureStore *features.Store, sc *scorer.Scorer, vectors *vectorstore.Store, kv kvstore.Client, logger logging.Logger) *Workflow {
	return &Workflow{featureStore: featureStore, scorer: sc, vectors: vectors, kv: kv, logger: logger}
}

// Runner builds a workflow.Runner over this workflow's node graph, using
// checkpointer for per-thread state persistence.
func (w *Workflow) Runner(checkpointer workflow.Checkpointer[State]) *workflow.Runner[State] {
	nodes := []workflow.Node[State]{
		{Name: "get_cart", Run: w.getCart, Route: routeOnError("get_features")},
		{Name: "get_features", Run: w.getFeatures, Route: routeOnError("estimate_churn")},
		{Name: "estimate_churn", Run: w.estimateChurn, Route: routeOnError("vector_search")},
		{Name: "vector_search", Run: w.vectorSearch, Route: routeOnError("rank_discount")},
		{Name: "rank_discount", Run: w.rankDiscount, Route: routeOnError("store_recommendations")},
		{Name: "store_recommendations", Run: w.storeRecommendations, Route: routeOnError("")},
		{Name: "error_handler", Run: errorHandler, Route: func(State) string { return "" }},
	}
	return workflow.NewRunner(nodes, "get_cart", recommendationsNamespace, checkpointer, w.logger)
}

// routeOnError builds a RouteFunc that sends the workflow to the terminal
// error_handler node whenever state.Error is set, and otherwise to next,
// per §4.8 step 7's "terminal on any upstream error" contract.
func routeOnError(next string) workflow.RouteFunc[State] {
	return func(s State) string {
		if s.Error != "" {
			return "error_handler"
		}
		return next
	}
}

func errorHandler(_ context.Context, s State) (State, error) {
	s.Completed = true
	return s, nil
}

func (w *Workflow) getCart(_ context.Context, s State) (State, error) {
	var total float64
	for _, item := range s.CartItems {
		total += item.Price * float64(item.Quantity)
	}
	s.CartTotal = total
	return s, nil
}

func (w *Workflow) getFeatures(_ context.Context, s State) (State, error) {
	feats, _, err := w.featureStore.RetrieveAll(s.UserID)
	if err != nil {
		s.Error = err.Error()
		return s, nil
	}
	s.Features = feats
	return s, nil
}

func (w *Workflow) estimateChurn(_ context.Context, s State) (State, error) {
	pred, err := w.scorer.PredictChurn(s.Features)
	if err != nil {
		s.Error = err.Error()
		return s, nil
	}
	s.ChurnProbability = pred.ChurnProbability
	s.RiskSegment = string(pred.RiskSegment)
	return s, nil
}

func (w *Workflow) vectorSearch(_ context.Context, s State) (State, error) {
	queries := buildQueries(s)
	exclude := make([]string, 0, len(s.CartItems))
	for _, item := range s.CartItems {
		exclude = append(exclude, item.ProductID)
	}

	seen := make(map[string]bool)
	var candidates []candidateProduct
	for _, q := range queries {
		results, err := w.vectors.SearchSimilar(q, 10, exclude)
		if err != nil {
			s.Error = err.Error()
			return s, nil
		}
		for _, r := range results {
			if seen[r.Product.ProductID] {
				continue
			}
			seen[r.Product.ProductID] = true
			candidates = append(candidates, candidateProduct{Product: r.Product, Score: r.Score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > 15 {
		candidates = candidates[:15]
	}
	s.Candidates = candidates
	return s, nil
}

// buildQueries implements §4.8 step 4's query construction: cart-derived
// queries when the cart is non-empty, else the user's recent categories
// (from cat_spend_dist) followed by the fixed fallback ladder.
func buildQueries(s State) []string {
	if len(s.CartItems) == 0 {
		queries := make([]string, 0, len(fallbackQueries)+1)
		if recent := recentCategoriesQuery(s.Features); recent != "" {
			queries = append(queries, recent)
		}
		return append(queries, fallbackQueries...)
	}

	var names, categories, brands []string
	for _, item := range s.CartItems {
		names = append(names, item.Name)
		if item.Category != "" {
			categories = append(categories, "Category: "+item.Category)
		}
		if item.Brand != "" {
			brands = append(brands, "Brand: "+item.Brand)
		}
	}

	queries := []string{strings.Join(append(names, append(categories, brands...)...), " | ")}
	if len(categories) > 0 {
		queries = append(queries, strings.Join(categories, " | "))
	}
	return queries
}

// recentCategoriesQuery builds the "user's recent categories" empty-cart
// fallback from the transactional family's cat_spend_dist feature
// (category -> spend), per §4.8 step 4(c). Returns "" if the feature is
// absent or empty so the caller falls through to the static fallbacks.
func recentCategoriesQuery(feats map[string]any) string {
	raw, ok := feats["cat_spend_dist"]
	if !ok {
		return ""
	}
	dist, ok := raw.(map[string]any)
	if !ok {
		return ""
	}

	type catSpend struct {
		category string
		spend    float64
	}
	spends := make([]catSpend, 0, len(dist))
	for category, v := range dist {
		amount, ok := v.(float64)
		if !ok || category == "" {
			continue
		}
		spends = append(spends, catSpend{category: category, spend: amount})
	}
	if len(spends) == 0 {
		return ""
	}

	sort.Slice(spends, func(i, j int) bool { return spends[i].spend > spends[j].spend })
	if len(spends) > 3 {
		spends = spends[:3]
	}

	categories := make([]string, 0, len(spends))
	for _, cs := range spends {
		categories = append(categories, "Category: "+cs.category)
	}
	return strings.Join(categories, " | ")
}

func (w *Workflow) rankDiscount(_ context.Context, s State) (State, error) {
	percent := discountPercentFor(s.RiskSegment)

	cartCategories := make(map[string]bool)
	cartBrands := make(map[string]bool)
	for _, item := range s.CartItems {
		cartCategories[item.Category] = true
		cartBrands[item.Brand] = true
	}

	recs := make([]domain.RecommendedProduct, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		p := c.Product
		recs = append(recs, domain.RecommendedProduct{
			ProductID:            p.ProductID,
			Name:                 p.Name,
			Description:          p.Description,
			Category:             p.Category,
			Brand:                p.Brand,
			Price:                p.Price,
			OriginalPrice:        p.Price,
			DiscountedPrice:      discountedPrice(p.Price, percent),
			DiscountPercentage:   int(percent),
			Rating:               p.Rating,
			ReviewCount:          p.ReviewCount,
			SimilarityScore:      c.Score,
			RecommendationReason: recommendationReason(p, c.Score, cartCategories, cartBrands),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		return rankingScore(recs[i]) > rankingScore(recs[j])
	})
	if len(recs) > 8 {
		recs = recs[:8]
	}
	s.Recommendations = recs
	return s, nil
}

// rankingScore implements §4.8 step 5's 0.6·similarity + 0.4·(rating/5).
func rankingScore(r domain.RecommendedProduct) float64 {
	return 0.6*r.SimilarityScore + 0.4*(r.Rating/5)
}

// recommendationReason implements §4.8's reason priority: cart-category
// match > cart-brand match > similarity >= 0.7 > rating >= 4.5 > default.
func recommendationReason(p domain.Product, score float64, cartCategories, cartBrands map[string]bool) string {
	switch {
	case cartCategories[p.Category]:
		return "Matches items in your cart"
	case cartBrands[p.Brand]:
		return "From a brand you already shop"
	case score >= 0.7:
		return "Highly similar to what you're viewing"
	case p.Rating >= 4.5:
		return "Highly rated by other shoppers"
	default:
		return "Recommended for you"
	}
}

func (w *Workflow) storeRecommendations(_ context.Context, s State) (State, error) {
	cache := domain.RecommendationCache{
		UserID:           s.UserID,
		Recommendations:  s.Recommendations,
		ChurnRisk:        s.RiskSegment,
		ChurnProbability: s.ChurnProbability,
		CartItemCount:    len(s.CartItems),
		CreatedAt:        s.CreatedAt,
	}
	if _, err := kvstore.PutWrapped(w.kv, recommendationsNamespace, s.UserID, cache); err != nil {
		return s, errors.Wrap(err, "recoworkflow: store recommendations")
	}
	s.Completed = true
	return s, nil
}
