// Package api implements the HTTP API surface (C11): the full endpoint
// table described in SPEC_FULL.md §4.11, wired directly over a
// runtime.Runtime. Grounded on server/api.go's initRouter (gorilla/mux,
// a request-counting middleware wrapping the whole router, handlers as
// methods on a single receiver) generalized from an authed Mattermost
// plugin router to a standalone service with no session concept.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quickmart/churnguard/internal/runtime"
)

// Server holds the Runtime and builds the router. Handlers are methods on
// Server so they share the Runtime without a package-level global,
// mirroring the teacher's Plugin receiver pattern.
type Server struct {
	rt *runtime.Runtime
}

// NewServer builds an API Server over rt.
func NewServer(rt *runtime.Runtime) *Server {
	return &Server{rt: rt}
}

// Router builds the full mux.Router, per §4.11's endpoint table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(apiMetricsMiddleware)

	router.HandleFunc("/ingest/{family}", s.handleIngest).Methods(http.MethodPost)

	router.HandleFunc("/predict/test", s.handlePredictTest).Methods(http.MethodPost)
	router.HandleFunc("/predict/{user_id}", s.handlePredict).Methods(http.MethodPost)

	router.HandleFunc("/recommendations/index", s.handleRecommendationsIndex).Methods(http.MethodPost)
	router.HandleFunc("/recommendations/status", s.handleRecommendationsStatus).Methods(http.MethodGet)
	router.HandleFunc("/recommendations/{user_id}", s.handleRecommendationsRun).Methods(http.MethodPost)
	router.HandleFunc("/recommendations/{user_id}", s.handleRecommendationsGet).Methods(http.MethodGet)

	router.HandleFunc("/nudge/rules", s.handleNudgeRules).Methods(http.MethodGet)
	router.HandleFunc("/nudge/rules/{id}", s.handleNudgeRuleByID).Methods(http.MethodGet)
	router.HandleFunc("/nudge/test/{user_id}", s.handleNudgeTest).Methods(http.MethodGet)

	router.HandleFunc("/messages/custom", s.handleCustomMessage).Methods(http.MethodPost)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/agent/status", s.handleAgentStatus).Methods(http.MethodGet)

	return router
}
