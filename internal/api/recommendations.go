package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/recoworkflow"
)

// recommendationsSet mirrors recoworkflow's own recommendationsNamespace
// constant (unexported there); kept in sync via §6's persisted-record-
// layout table ("user_recommendations — value-store; key user_id").
const recommendationsSet = "user_recommendations"

type recommendationsIndexRequest struct {
	Products []domain.Product `json:"products,omitempty"`
}

type recommendationsIndexResponse struct {
	IndexedCount int    `json:"indexed_count"`
	Source       string `json:"source"`
}

// handleRecommendationsIndex implements POST /recommendations/index:
// re-index the catalog from an optional inline payload, else pull from the
// storefront, per §4.11.
func (s *Server) handleRecommendationsIndex(w http.ResponseWriter, r *http.Request) {
	var req recommendationsIndexRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	products := req.Products
	source := "inline"
	if len(products) == 0 {
		var err error
		products, err = s.rt.StorefrontClient.ListProducts(r.Context(), 1000)
		if err != nil {
			s.rt.Logger.Error("api: list products from storefront failed", "error", err.Error())
			writeError(w, http.StatusBadGateway, "failed to fetch products from storefront")
			return
		}
		source = "storefront"
	}

	if err := s.rt.VectorStore.IndexProducts(products); err != nil {
		s.rt.Logger.Error("api: index products failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to index products")
		return
	}
	s.rt.MarkIndexed(time.Now())

	writeJSON(w, http.StatusOK, recommendationsIndexResponse{IndexedCount: len(products), Source: source})
}

// recommendationResponse matches §6's "Recommendation response" wire shape.
type recommendationResponse struct {
	UserID           string                        `json:"user_id"`
	Recommendations  []domain.RecommendedProduct  `json:"recommendations"`
	ChurnRisk        string                        `json:"churn_risk"`
	ChurnProbability float64                       `json:"churn_probability"`
	GeneratedAt      string                        `json:"generated_at"`
	Source           string                        `json:"source"`
}

type recommendationsRunRequest struct {
	CartItems []domain.CartItem `json:"cart_items,omitempty"`
}

// handleRecommendationsRun implements POST /recommendations/{user_id}: run
// C8, returning a ranked, discounted list plus risk. 503 until the catalog
// has been indexed at least once, per §7's IndexNotReady error kind.
func (s *Server) handleRecommendationsRun(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	count, err := s.rt.IndexedCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check index readiness")
		return
	}
	if count == 0 {
		writeError(w, http.StatusServiceUnavailable, "product catalog has not been indexed yet")
		return
	}

	var req recommendationsRunRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	now := time.Now()
	runner := s.rt.RecoWorkflow.Runner(s.rt.RecoCheckpointer)
	final, _, err := runner.Run(r.Context(), recoThreadID(userID), recoworkflow.State{
		UserID:    userID,
		CartItems: req.CartItems,
		CreatedAt: now,
	})
	if err != nil {
		s.rt.Logger.Error("api: recommendations workflow failed", "user_id", userID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "recommendations workflow failed")
		return
	}
	if final.Error != "" {
		writeError(w, http.StatusInternalServerError, final.Error)
		return
	}

	writeJSON(w, http.StatusOK, recommendationResponse{
		UserID:           userID,
		Recommendations:  final.Recommendations,
		ChurnRisk:        final.RiskSegment,
		ChurnProbability: final.ChurnProbability,
		GeneratedAt:      now.UTC().Format(time.RFC3339),
		Source:           "generated",
	})
}

func recoThreadID(userID string) string {
	return "reco_" + userID
}

// handleRecommendationsGet implements GET /recommendations/{user_id}:
// return the cached result written by the last run, 404 if none.
func (s *Server) handleRecommendationsGet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var cache domain.RecommendationCache
	ok, err := kvstore.GetWrapped(s.rt.KV, recommendationsSet, userID, &cache)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(err, "read cached recommendations").Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no cached recommendations for user")
		return
	}

	writeJSON(w, http.StatusOK, recommendationResponse{
		UserID:           cache.UserID,
		Recommendations:  cache.Recommendations,
		ChurnRisk:        cache.ChurnRisk,
		ChurnProbability: cache.ChurnProbability,
		GeneratedAt:      cache.CreatedAt.UTC().Format(time.RFC3339),
		Source:           "cached",
	})
}

type recommendationsStatusResponse struct {
	Indexed       bool   `json:"indexed"`
	IndexedCount  int    `json:"indexed_count"`
	LastIndexedAt string `json:"last_indexed_at,omitempty"`
}

// handleRecommendationsStatus implements GET /recommendations/status:
// report indexing and vector-store readiness.
func (s *Server) handleRecommendationsStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.rt.IndexedCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read index status")
		return
	}

	resp := recommendationsStatusResponse{Indexed: count > 0, IndexedCount: count}
	if lastIndexed := s.rt.LastIndexedAt(); !lastIndexed.IsZero() {
		resp.LastIndexedAt = lastIndexed.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
