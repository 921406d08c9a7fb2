package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// apiRequestCounts stores request totals by endpoint key, transplanted
// from server/metrics.go's package-level counter map.
var (
	apiRequestCounts     = map[string]int{}
	apiRequestCountsLock sync.RWMutex
)

func recordAPIRequest(endpoint string) {
	apiRequestCountsLock.Lock()
	defer apiRequestCountsLock.Unlock()
	apiRequestCounts[endpoint]++
}

// getAPIRequestCountsSnapshot returns a copy of the counter map for the
// /agent/status endpoint.
func getAPIRequestCountsSnapshot() map[string]int {
	apiRequestCountsLock.RLock()
	defer apiRequestCountsLock.RUnlock()
	snapshot := make(map[string]int, len(apiRequestCounts))
	for k, v := range apiRequestCounts {
		snapshot[k] = v
	}
	return snapshot
}

// apiMetricsMiddleware records every request that reaches the router,
// keyed by the matched route's path template (gorilla/mux already
// generalizes "/predict/{user_id}" without the teacher's manual regexp
// normalizer table, since there's no Mattermost-specific nested-resource
// shape to flatten here).
func apiMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tmpl
			}
		}
		recordAPIRequest(key)
		next.ServeHTTP(w, r)
	})
}
