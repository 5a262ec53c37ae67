package rest

import "net/http"

// handleHealth is the liveness probe. It reports cluster connectivity but
// never fails because of it.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":      "ok",
		"k8s_enabled": h.cluster != nil && h.cluster.Enabled(),
	}
	if h.cluster != nil && h.cluster.Enabled() {
		healthy, lastErr := h.cluster.Health()
		body["k8s_healthy"] = healthy
		if lastErr != nil {
			body["k8s_last_error"] = lastErr.Error()
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// handleReady is the readiness probe: the service can answer queries only
// when the vector store responds.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ready(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ready": false,
			"error": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}
