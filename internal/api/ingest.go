package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quickmart/churnguard/internal/features"
)

// handleIngest implements POST /ingest/{family}: upsert a partial feature
// record into C2, per §4.11's table and §6's per-family wire formats.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	if !features.IsValidFamily(family) {
		writeError(w, http.StatusBadRequest, "unknown feature family: "+family)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, _ := body["user_id"].(string)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	delete(body, "user_id")

	if err := s.rt.FeatureStore.Ingest(userID, features.Family(family), body); err != nil {
		s.rt.Logger.Error("api: ingest failed", "user_id", userID, "family", family, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to ingest features")
		return
	}

	writeJSON(w, http.StatusOK, statusOKResponse{Status: "ok"})
}

type statusOKResponse struct {
	Status string `json:"status"`
}
