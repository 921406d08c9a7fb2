package api

import (
	"net/http"
	"time"
)

// healthStatus mirrors server/api.go's HealthStatus: a single subsystem's
// health plus an optional message.
type healthStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Healthy       bool         `json:"healthy"`
	Configuration healthStatus `json:"configuration"`
	KVStore       healthStatus `json:"kv_store"`
}

// handleHealth implements GET /health: liveness, following server/api.go's
// handleHealthCheck -- config validity plus a live reachability probe of
// the primary dependency (here, the KV store in place of the Cursor API).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{}

	if err := s.rt.Config.Validate(); err != nil {
		resp.Configuration = healthStatus{OK: false, Message: err.Error()}
	} else {
		resp.Configuration = healthStatus{OK: true}
	}

	if _, err := s.rt.KV.Count("user_features"); err != nil {
		resp.KVStore = healthStatus{OK: false, Message: err.Error()}
	} else {
		resp.KVStore = healthStatus{OK: true}
	}

	resp.Healthy = resp.Configuration.OK && resp.KVStore.OK

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// agentStatusResponse implements GET /agent/status: workflow configuration
// and process-level diagnostics, following server/metrics.go's
// MetricsResponse shape generalized beyond a single counter map.
type agentStatusResponse struct {
	UptimeSeconds            int64          `json:"uptime_seconds"`
	UseWorkflowOrchestration bool           `json:"use_workflow_orchestration"`
	UseValueStore            bool           `json:"use_value_store"`
	NudgeRuleCount           int            `json:"nudge_rule_count"`
	IndexedProductCount      int            `json:"indexed_product_count"`
	APIRequestCounts         map[string]int `json:"api_request_counts"`
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	indexedCount, err := s.rt.IndexedCount()
	if err != nil {
		indexedCount = -1
	}

	resp := agentStatusResponse{
		UptimeSeconds:            int64(time.Since(s.rt.StartedAt).Seconds()),
		UseWorkflowOrchestration: s.rt.Config.UseWorkflowOrchestration,
		UseValueStore:            s.rt.Config.UseValueStore,
		NudgeRuleCount:           len(s.rt.RulesEngine.Rules()),
		IndexedProductCount:      indexedCount,
		APIRequestCounts:         getAPIRequestCountsSnapshot(),
	}
	writeJSON(w, http.StatusOK, resp)
}
