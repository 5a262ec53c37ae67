package rest

import (
	"encoding/json"
	"net/http"

	"github.com/kuberag/kuberag-agent/internal/models"
	"github.com/kuberag/kuberag-agent/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20 // 1MB is plenty for prompts and documents

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body", logger.FromContext(r.Context()))
		return
	}
	if req.Prompt == "" {
		respondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidRequest, "prompt is required", logger.FromContext(r.Context()))
		return
	}

	resp, err := h.query.Query(r.Context(), req.Prompt, req.TopK)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		respondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body", logger.FromContext(r.Context()))
		return
	}
	if doc.Text == "" {
		respondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text is required", logger.FromContext(r.Context()))
		return
	}

	resp, err := h.ingest.Ingest(r.Context(), doc)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
