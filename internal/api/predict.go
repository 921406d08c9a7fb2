package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/quickmart/churnguard/internal/predictworkflow"
	"github.com/quickmart/churnguard/internal/workflow"
)

// predictionResponse matches §6's "Prediction response" wire shape.
type predictionResponse struct {
	UserID             string         `json:"user_id"`
	ChurnProbability   float64        `json:"churn_probability"`
	RiskSegment        string         `json:"risk_segment"`
	ChurnReasons       []string       `json:"churn_reasons"`
	ConfidenceScore    float64        `json:"confidence_score"`
	FeaturesRetrieved  map[string]any `json:"features_retrieved"`
	FeatureFreshness   string         `json:"feature_freshness,omitempty"`
	PredictionTimestamp string        `json:"prediction_timestamp"`
	NudgesTriggered    []nudgeActionResponse `json:"nudges_triggered,omitempty"`
	NudgeRuleMatched   string         `json:"nudge_rule_matched,omitempty"`
}

type nudgeActionResponse struct {
	Type            string  `json:"type"`
	ContentTemplate string  `json:"content_template"`
	Channel         string  `json:"channel"`
	Priority        int     `json:"priority"`
}

// handlePredict implements POST /predict/{user_id}: run C9 end-to-end.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	runner := s.rt.PredictWorkflow.Runner(s.rt.PredictCheckpointer)
	final, _, err := runner.Run(r.Context(), predictThreadID(userID), predictworkflow.State{UserID: userID})
	if err != nil {
		s.rt.Logger.Error("api: prediction workflow failed", "user_id", userID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "prediction workflow failed")
		return
	}

	if final.Error != "" {
		if strings.Contains(final.Error, "no features available") {
			writeError(w, http.StatusNotFound, "no features available for user")
			return
		}
		writeError(w, http.StatusInternalServerError, final.Error)
		return
	}

	resp := predictionResponse{
		UserID:              userID,
		FeaturesRetrieved:   final.UserFeatures,
		FeatureFreshness:    final.FeatureFreshness,
		PredictionTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if final.ChurnPrediction != nil {
		resp.ChurnProbability = final.ChurnPrediction.Probability
		resp.RiskSegment = final.ChurnPrediction.Segment
		resp.ChurnReasons = final.ChurnPrediction.Reasons
		resp.ConfidenceScore = final.ChurnPrediction.Confidence
	}
	if final.NudgeDecision != nil && final.NudgeDecision.ShouldNudge {
		resp.NudgeRuleMatched = final.NudgeDecision.RuleID
	}
	if final.GeneratedNudge != nil {
		for _, a := range final.GeneratedNudge.Actions {
			resp.NudgesTriggered = append(resp.NudgesTriggered, nudgeActionResponse{
				Type:            string(a.Type),
				ContentTemplate: a.ContentTemplate,
				Channel:         string(a.Channel),
				Priority:        a.Priority,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func predictThreadID(userID string) string {
	return "predict_" + userID
}

// predictTestResponse is the diagnostic payload for POST /predict/test:
// step-by-step trace messages plus total wall-clock time, since the
// workflow Runner doesn't expose per-node timings directly (§4.11).
type predictTestResponse struct {
	UserID       string                    `json:"user_id"`
	DurationMS   int64                     `json:"duration_ms"`
	Trace        []predictworkflow.Message `json:"trace"`
	FinalStep    string                    `json:"final_step"`
	Error        string                    `json:"error,omitempty"`
}

type predictTestRequest struct {
	UserID string `json:"user_id"`
}

// handlePredictTest implements POST /predict/test: a diagnostic run that
// reports the total wall-clock time of the run and the per-step
// observability trace already threaded through
// predictworkflow.State.Messages. Per-node timings are not measured.
func (s *Server) handlePredictTest(w http.ResponseWriter, r *http.Request) {
	var req predictTestRequest
	if err := decodeJSONBody(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	started := time.Now()
	checkpointer := workflow.NewMemoryCheckpointer[predictworkflow.State]()
	runner := s.rt.PredictWorkflow.Runner(checkpointer)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	final, lastNode, err := runner.Run(ctx, predictThreadID(req.UserID)+"_test", predictworkflow.State{UserID: req.UserID})
	resp := predictTestResponse{
		UserID:     req.UserID,
		DurationMS: time.Since(started).Milliseconds(),
		Trace:      final.Messages,
		FinalStep:  lastNode,
	}
	if err != nil {
		resp.Error = err.Error()
	} else if final.Error != "" {
		resp.Error = final.Error
	}

	writeJSON(w, http.StatusOK, resp)
}
