package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickmart/churnguard/internal/actions"
	"github.com/quickmart/churnguard/internal/config"
	"github.com/quickmart/churnguard/internal/domain"
	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/llmclient"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/predictworkflow"
	"github.com/quickmart/churnguard/internal/recoworkflow"
	"github.com/quickmart/churnguard/internal/rules"
	"github.com/quickmart/churnguard/internal/runtime"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/storefront"
	"github.com/quickmart/churnguard/internal/vectorstore"
	"github.com/quickmart/churnguard/internal/workflow"
)

type fixedModel struct{ p float64 }

func (f fixedModel) PredictProba([]float64) (float64, error) { return f.p, nil }

type toyEmbedder struct{}

func (toyEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r % 7)
	}
	return vec, nil
}

type fakeLLM struct{ text string }

func (f fakeLLM) Complete(context.Context, llmclient.CompletionRequest) (*llmclient.CompletionResponse, error) {
	return &llmclient.CompletionResponse{Text: f.text}, nil
}

func newTestServerWithLLM(t *testing.T, churnProbability float64, llmText string) (*Server, *kvstore.MemoryClient) {
	t.Helper()
	kv := kvstore.NewMemoryClient()
	logger := logging.Nop{}

	fs := features.NewStore(kv, logger)
	sc, err := scorer.New(fixedModel{p: churnProbability}, scorer.NewRuleExplainer())
	require.NoError(t, err)

	values := kvstore.NewValueStore(kv, toyEmbedder{})
	vs := vectorstore.New(values, kv)

	sfServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/coupons/internal/assign-nudge-coupon":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(storefront.AssignCouponResponse{UserCouponID: "uc1", Code: "WELCOME20"})
		case "/api/products":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"products": []domain.Product{
				{ProductID: "p1", Name: "Blue Widget", Category: "widgets", Brand: "Acme", Price: 20, Rating: 4.8},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(sfServer.Close)
	sf := storefront.NewClientWithHTTPClient(sfServer.URL, sfServer.Client())

	llm := fakeLLM{text: llmText}
	msgGen := actions.NewMessageGenerator(llm, logger)
	executor := actions.NewExecutor(kv, sf, logger)
	engine := rules.New(rules.DefaultRules(), msgGen, executor, logger)

	predictWF := predictworkflow.New(fs, sc, engine, logger)
	recoWF := recoworkflow.New(fs, sc, vs, kv, logger)

	rt := &runtime.Runtime{
		Config:              &config.Config{UseWorkflowOrchestration: true, UseValueStore: true, KVStoreHost: "h", KVStorePort: 1, KVStoreNamespace: "ns", ModelPath: "m", APIPort: 8080},
		Logger:              logger,
		KV:                  kv,
		FeatureStore:        fs,
		Scorer:              sc,
		RulesEngine:         engine,
		LLMClient:           llm,
		StorefrontClient:    sf,
		Executor:            executor,
		MessageGenerator:    msgGen,
		VectorStore:         vs,
		PredictWorkflow:     predictWF,
		RecoWorkflow:        recoWF,
		PredictCheckpointer: workflow.NewMemoryCheckpointer[predictworkflow.State](),
		RecoCheckpointer:    workflow.NewMemoryCheckpointer[recoworkflow.State](),
		StartedAt:           time.Now(),
	}
	return NewServer(rt), kv
}

func newTestServer(t *testing.T, churnProbability float64) (*Server, *kvstore.MemoryClient) {
	t.Helper()
	return newTestServerWithLLM(t, churnProbability, "hand-picked, just for you")
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestThenPredict(t *testing.T) {
	srv, _ := newTestServer(t, 0.85)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/ingest/behavior", map[string]any{"user_id": "u1", "days_last_login": 30})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/predict/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp predictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "u1", resp.UserID)
	require.Equal(t, "critical", resp.RiskSegment)
	require.NotEmpty(t, resp.NudgeRuleMatched)
	require.NotEmpty(t, resp.NudgesTriggered)
}

func TestPredictNoFeaturesReturns404(t *testing.T) {
	srv, _ := newTestServer(t, 0.85)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/predict/unknown-user", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendationsFlowRequiresIndexFirst(t *testing.T) {
	srv, _ := newTestServer(t, 0.2)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/recommendations/u1", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/recommendations/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/recommendations/u1", recommendationsRunRequest{
		CartItems: []domain.CartItem{{ProductID: "cart1", Name: "Green Widget", Category: "widgets", Brand: "Acme", Price: 10, Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp recommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "generated", resp.Source)

	rec = doRequest(t, router, http.MethodGet, "/recommendations/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "cached", resp.Source)

	rec = doRequest(t, router, http.MethodGet, "/recommendations/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status recommendationsStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Indexed)
}

func TestRecommendationsGetMissingReturns404(t *testing.T) {
	srv, _ := newTestServer(t, 0.2)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/recommendations/no-such-user", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNudgeRulesIntrospection(t *testing.T) {
	srv, _ := newTestServer(t, 0.5)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/nudge/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rulesList []nudgeRuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rulesList))
	require.NotEmpty(t, rulesList)

	rec = doRequest(t, router, http.MethodGet, "/nudge/rules/"+rulesList[0].RuleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/nudge/rules/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNudgeTestSimulatesMatching(t *testing.T) {
	srv, _ := newTestServer(t, 0.85)
	router := srv.Router()

	doRequest(t, router, http.MethodPost, "/ingest/behavior", map[string]any{"user_id": "u2", "days_last_login": 30})

	rec := doRequest(t, router, http.MethodGet, "/nudge/test/u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp nudgeTestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Matched)
}

func TestCustomMessageGeneratesAndOptionallyPersists(t *testing.T) {
	srv, kv := newTestServer(t, 0.5)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/messages/custom", customMessageRequest{
		UserID: "u3", ChurnProbability: 0.7, ChurnReasons: []string{"Inactive"}, Persist: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp customMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Message)

	count, err := kv.Count("custom_user_messages")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCustomMessageReturns500OnEmptyLLMContent(t *testing.T) {
	srv, _ := newTestServerWithLLM(t, 0.5, "   ")
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/messages/custom", customMessageRequest{
		UserID: "u4", ChurnProbability: 0.7, ChurnReasons: []string{"Inactive"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndAgentStatus(t *testing.T) {
	srv, _ := newTestServer(t, 0.5)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/agent/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status agentStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Greater(t, status.NudgeRuleCount, 0)
}
