package recoworkflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/vectorstore"
	"github.com/quickmart/churnguard/internal/workflow"
)

type fixedModel struct{ p float64 }

func (f fixedModel) PredictProba([]float64) (float64, error) { return f.p, nil }

type toyEmbedder struct{}

func (toyEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r % 5)
	}
	return vec, nil
}

func buildTestWorkflow(t *testing.T, p float64) (*Workflow, *kvstore.MemoryClient) {
	t.Helper()
	kv := kvstore.NewMemoryClient()
	fs := features.NewStore(kv, logging.Nop{})
	sc, err := scorer.New(fixedModel{p: p}, scorer.NewRuleExplainer())
	require.NoError(t, err)

	values := kvstore.NewValueStore(kv, toyEmbedder{})
	vs := vectorstore.New(values, kv)
	require.NoError(t, vs.IndexProducts([]domain.Product{
		{ProductID: "p1", Name: "Blue Widget", Description: "handy widget", Category: "widgets", Brand: "Acme", Price: 20, Rating: 4.8},
		{ProductID: "p2", Name: "Red Gadget", Description: "shiny gadget", Category: "gadgets", Brand: "Acme", Price: 50, Rating: 4.0},
	}))

	return New(fs, sc, vs, kv, logging.Nop{}), kv
}

func TestRecommendationsWorkflowProducesRankedList(t *testing.T) {
	wf, kv := buildTestWorkflow(t, 0.85)
	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "reco_u1", State{
		UserID:    "u1",
		CartItems: []domain.CartItem{{ProductID: "cart1", Name: "Green Widget", Category: "widgets", Brand: "Acme", Price: 10, Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, final.Completed)
	require.NotEmpty(t, final.Recommendations)

	count, err := kv.Count("user_recommendations")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecommendationsWorkflowDiscountMatchesSegment(t *testing.T) {
	wf, _ := buildTestWorkflow(t, 0.85)
	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "reco_u2", State{UserID: "u2"})
	require.NoError(t, err)
	require.True(t, final.Completed)
	for _, r := range final.Recommendations {
		require.Equal(t, 25, r.DiscountPercentage) // critical segment midpoint
	}
}

func TestRecommendationsWorkflowEmptyCartUsesFallbackQueries(t *testing.T) {
	wf, _ := buildTestWorkflow(t, 0.2)
	cp := workflow.NewMemoryCheckpointer[State]()
	runner := wf.Runner(cp)

	final, _, err := runner.Run(context.Background(), "reco_u3", State{UserID: "u3"})
	require.NoError(t, err)
	require.True(t, final.Completed)
	for _, r := range final.Recommendations {
		require.Equal(t, 2, r.DiscountPercentage) // low segment midpoint
	}
}

func TestBuildQueriesEmptyCartLeadsWithRecentCategories(t *testing.T) {
	s := State{
		Features: map[string]any{
			"cat_spend_dist": map[string]any{
				"widgets": 120.0,
				"gadgets": 400.0,
				"snacks":  5.0,
			},
		},
	}
	queries := buildQueries(s)
	require.Equal(t, "Category: gadgets | Category: widgets | Category: snacks", queries[0])
	require.Equal(t, fallbackQueries, queries[1:])
}

func TestBuildQueriesEmptyCartNoCategoryHistoryUsesStaticFallback(t *testing.T) {
	s := State{UserID: "no-history"}
	queries := buildQueries(s)
	require.Equal(t, fallbackQueries, queries)
}
