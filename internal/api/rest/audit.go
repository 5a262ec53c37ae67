package rest

import (
	"net/http"

	"github.com/kuberag/kuberag-agent/internal/pkg/logger"
)

func (h *Handler) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondErrorWithCode(w, http.StatusNotFound, ErrCodeNotFound, "audit trail disabled", logger.FromContext(r.Context()))
		return
	}
	audits, err := h.audit.Recent(r.Context(), 20)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"audits": audits,
		"count":  len(audits),
	})
}
