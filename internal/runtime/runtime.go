// Package runtime wires every collaborator into a single, constructed-once
// Runtime struct, threaded through the HTTP layer and the two workflows.
// This replaces the source system's module-level singletons (KV client,
// model, LLM client, message generator, rule table) with explicit
// dependency injection, mirroring the teacher's Plugin struct assembled
// once in OnActivate and passed by receiver to every handler.
package runtime

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/actions"
	"github.com/quickmart/churnguard/internal/config"
	"github.com/quickmart/churnguard/internal/features"
	"github.com/quickmart/churnguard/internal/kvstore"
	"github.com/quickmart/churnguard/internal/llmclient"
	"github.com/quickmart/churnguard/internal/logging"
	"github.com/quickmart/churnguard/internal/predictworkflow"
	"github.com/quickmart/churnguard/internal/recoworkflow"
	"github.com/quickmart/churnguard/internal/rules"
	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/storefront"
	"github.com/quickmart/churnguard/internal/vectorstore"
	"github.com/quickmart/churnguard/internal/workflow"
)

// Runtime holds every long-lived collaborator the HTTP layer needs. It is
// built once by New and never mutated after construction, except for the
// indexing-readiness timestamp recorded by MarkIndexed.
type Runtime struct {
	Config *config.Config
	Logger logging.Logger

	KV           kvstore.Client
	FeatureStore *features.Store
	Scorer       *scorer.Scorer
	RulesEngine  *rules.Engine

	LLMClient        llmclient.Client
	StorefrontClient storefront.Client
	Executor         *actions.Executor
	MessageGenerator *actions.MessageGenerator

	VectorStore *vectorstore.Store

	PredictWorkflow      *predictworkflow.Workflow
	RecoWorkflow         *recoworkflow.Workflow
	PredictCheckpointer  workflow.Checkpointer[predictworkflow.State]
	RecoCheckpointer     workflow.Checkpointer[recoworkflow.State]

	StartedAt time.Time

	indexMu     sync.RWMutex
	lastIndexed time.Time
}

// New builds a Runtime from cfg: connects the KV store, loads the model
// artifact (fatal per §7's ModelMissing if none can be loaded), and wires
// every collaborator, mirroring the order of Plugin.OnActivate in the
// teacher: store first, then API clients, then the components that depend
// on them.
func New(cfg *config.Config, logger logging.Logger, now func() time.Time) (*Runtime, error) {
	if now == nil {
		now = time.Now
	}

	kv, err := kvstore.NewAerospikeClient(kvstore.AerospikeConfig{
		Host:      cfg.KVStoreHost,
		Port:      cfg.KVStorePort,
		Namespace: cfg.KVStoreNamespace,
		UseTLS:    cfg.KVStoreUseTLS,
		TLSCAFile: cfg.KVStoreTLSCAFile,
		TLSName:   cfg.KVStoreTLSName,
		Username:  cfg.KVStoreUsername,
		Password:  cfg.KVStorePassword,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "runtime: connect to kv store")
	}

	model, loadedFrom, err := scorer.LoadModel(candidateModelPaths(cfg), newJSONLogisticModel)
	if err != nil {
		return nil, errors.Wrap(err, "runtime: load model")
	}
	logger.Info("runtime: model loaded", "path", loadedFrom)

	sc, err := scorer.New(model, scorer.NewRuleExplainer())
	if err != nil {
		return nil, errors.Wrap(err, "runtime: construct scorer")
	}

	featureStore := features.NewStore(kv, logger)

	embedder := newHashEmbedder(vectorEmbeddingDims)
	var valueStore *kvstore.ValueStore
	if cfg.UseValueStore {
		valueStore = kvstore.NewValueStore(kv, embedder)
	} else {
		valueStore = kvstore.NewValueStore(kv, nil)
	}
	vectorStore := vectorstore.New(valueStore, kv)

	llmClient := llmclient.NewClient(cfg.LLMAPIKey, cfg.LLMModel,
		llmclient.WithLogger(logger),
		llmclient.WithTimeout(cfg.HTTPClientTimeout),
	)
	storefrontClient := storefront.NewClient(cfg.StorefrontAPIURL)

	messageGenerator := actions.NewMessageGenerator(llmClient, logger)
	executor := actions.NewExecutor(kv, storefrontClient, logger)
	rulesEngine := rules.New(rules.DefaultRules(), messageGenerator, executor, logger)

	predictCheckpointer := buildPredictCheckpointer(cfg, kv, logger)
	recoCheckpointer := buildRecoCheckpointer(cfg, kv, logger)

	predictWF := predictworkflow.New(featureStore, sc, rulesEngine, logger)
	recoWF := recoworkflow.New(featureStore, sc, vectorStore, kv, logger)

	rt := &Runtime{
		Config:              cfg,
		Logger:              logger,
		KV:                  kv,
		FeatureStore:        featureStore,
		Scorer:              sc,
		RulesEngine:         rulesEngine,
		LLMClient:           llmClient,
		StorefrontClient:    storefrontClient,
		Executor:            executor,
		MessageGenerator:    messageGenerator,
		VectorStore:         vectorStore,
		PredictWorkflow:     predictWF,
		RecoWorkflow:        recoWF,
		PredictCheckpointer: predictCheckpointer,
		RecoCheckpointer:    recoCheckpointer,
		StartedAt:           now(),
	}
	return rt, nil
}

func buildPredictCheckpointer(cfg *config.Config, kv kvstore.Client, logger logging.Logger) workflow.Checkpointer[predictworkflow.State] {
	if !cfg.UseWorkflowOrchestration {
		return workflow.NewMemoryCheckpointer[predictworkflow.State]()
	}
	return workflow.NewKVCheckpointer[predictworkflow.State](kv, logger)
}

func buildRecoCheckpointer(cfg *config.Config, kv kvstore.Client, logger logging.Logger) workflow.Checkpointer[recoworkflow.State] {
	if !cfg.UseWorkflowOrchestration {
		return workflow.NewMemoryCheckpointer[recoworkflow.State]()
	}
	return workflow.NewKVCheckpointer[recoworkflow.State](kv, logger)
}

func candidateModelPaths(cfg *config.Config) []string {
	return []string{cfg.ModelPath, cfg.ModelMetricsPath}
}

// IndexedCount reports how many products are currently in the vector
// index, for the /recommendations/status readiness check.
func (r *Runtime) IndexedCount() (int, error) {
	return r.VectorStore.Count()
}

// MarkIndexed records that a re-index just completed, for readiness
// reporting.
func (r *Runtime) MarkIndexed(at time.Time) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	r.lastIndexed = at
}

// LastIndexedAt returns the timestamp of the last successful index run, or
// the zero time if none has run yet this process.
func (r *Runtime) LastIndexedAt() time.Time {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return r.lastIndexed
}
