package api

import (
	"net/http"

	"github.com/quickmart/churnguard/internal/domain"
)

type customMessageRequest struct {
	UserID           string         `json:"user_id"`
	ChurnProbability float64        `json:"churn_probability"`
	ChurnReasons     []string       `json:"churn_reasons"`
	UserFeatures     map[string]any `json:"user_features,omitempty"`
	Persist          bool           `json:"persist,omitempty"`
}

type customMessageResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// handleCustomMessage implements POST /messages/custom: generate (and
// optionally persist) a personalized message for the given
// (user_id, churn_probability, churn_reasons, user_features?), per §4.11.
// Per §7's LLMTruncation error kind, an empty/whitespace LLM completion
// surfaces as actions.ErrLLMTruncation from GenerateMessage and this
// endpoint returns 500 (unlike the nudge path, which logs and proceeds
// without a message); persistence reuses C6's Custom Message action path
// so the write lands in the same nudges/custom_user_messages sets a
// rule-triggered message would.
func (s *Server) handleCustomMessage(w http.ResponseWriter, r *http.Request) {
	var req customMessageRequest
	if err := decodeJSONBody(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	message, err := s.rt.MessageGenerator.GenerateMessage(r.Context(), req.UserID, req.ChurnProbability, req.ChurnReasons, req.UserFeatures)
	if err != nil {
		s.rt.Logger.Error("api: message generation failed", "user_id", req.UserID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "message generation failed")
		return
	}

	if req.Persist {
		action := domain.NudgeAction{Type: domain.ActionCustomMessage, Channel: domain.ChannelApp}
		if err := s.rt.Executor.Execute(r.Context(), req.UserID, action, req.ChurnProbability, req.ChurnReasons, message); err != nil {
			s.rt.Logger.Error("api: persisting custom message failed", "user_id", req.UserID, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to persist message")
			return
		}
	}

	writeJSON(w, http.StatusOK, customMessageResponse{UserID: req.UserID, Message: message})
}
