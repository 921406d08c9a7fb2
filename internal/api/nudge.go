package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/quickmart/churnguard/internal/domain"
)

type nudgeRuleResponse struct {
	RuleID          string                `json:"rule_id"`
	ChurnScoreRange [2]float64            `json:"churn_score_range"`
	ChurnReasons    []string              `json:"churn_reasons"`
	Priority        int                   `json:"priority"`
	Nudges          []domain.NudgeAction  `json:"nudges"`
}

func ruleToResponse(r domain.NudgeRule) nudgeRuleResponse {
	return nudgeRuleResponse{
		RuleID:          r.RuleID,
		ChurnScoreRange: r.ChurnScoreRange,
		ChurnReasons:    r.ChurnReasons,
		Priority:        r.Priority,
		Nudges:          r.Nudges,
	}
}

// handleNudgeRules implements GET /nudge/rules: the full priority-ordered
// rule table, for introspection.
func (s *Server) handleNudgeRules(w http.ResponseWriter, r *http.Request) {
	rules := s.rt.RulesEngine.Rules()
	out := make([]nudgeRuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNudgeRuleByID implements GET /nudge/rules/{id}.
func (s *Server) handleNudgeRuleByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rule, ok := s.rt.RulesEngine.RuleByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such rule: "+id)
		return
	}
	writeJSON(w, http.StatusOK, ruleToResponse(rule))
}

type nudgeTestResponse struct {
	UserID           string   `json:"user_id"`
	ChurnProbability float64  `json:"churn_probability"`
	RiskSegment      string   `json:"risk_segment"`
	ChurnReasons     []string `json:"churn_reasons"`
	Matched          bool     `json:"matched"`
	RuleID           string   `json:"rule_id,omitempty"`
}

// handleNudgeTest implements GET /nudge/test/{user_id}: simulate rule
// matching for the user's current churn prediction without triggering any
// action side effects, optionally overriding the probability via the
// ?probability= query parameter for scenario testing.
func (s *Server) handleNudgeTest(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	feats, _, err := s.rt.FeatureStore.RetrieveAll(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve features")
		return
	}
	if len(feats) == 0 {
		writeError(w, http.StatusNotFound, "no features available for user")
		return
	}

	pred, err := s.rt.Scorer.PredictChurn(feats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "churn prediction failed")
		return
	}

	probability := pred.ChurnProbability
	if override := r.URL.Query().Get("probability"); override != "" {
		if parsed, parseErr := strconv.ParseFloat(override, 64); parseErr == nil {
			probability = parsed
		}
	}

	rule, matched := s.rt.RulesEngine.FindMatchingRule(probability, pred.ChurnReasons)
	resp := nudgeTestResponse{
		UserID:           userID,
		ChurnProbability: probability,
		RiskSegment:      string(pred.RiskSegment),
		ChurnReasons:     pred.ChurnReasons,
		Matched:          matched,
	}
	if matched {
		resp.RuleID = rule.RuleID
	}
	writeJSON(w, http.StatusOK, resp)
}
