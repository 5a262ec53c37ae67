package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kuberag/kuberag-agent/internal/collector"
	"github.com/kuberag/kuberag-agent/internal/llm"
	"github.com/kuberag/kuberag-agent/internal/pkg/logger"
	"github.com/kuberag/kuberag-agent/internal/vector"
)

// APIError represents a structured API error response
type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes for common scenarios
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeMetricsUnavailable = "METRICS_UNAVAILABLE"
	ErrCodeRetrievalFailed    = "RETRIEVAL_FAILED"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
)

// respondErrorWithCode sends a structured error response with an error code
func respondErrorWithCode(w http.ResponseWriter, status int, code, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}

// respondPipelineError maps pipeline sentinels onto stable codes so
// clients can branch without parsing message text.
func respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, collector.ErrMetricsUnavailable):
		respondErrorWithCode(w, http.StatusServiceUnavailable, ErrCodeMetricsUnavailable, err.Error(), reqID)
	case errors.Is(err, vector.ErrRetrievalFailure):
		respondErrorWithCode(w, http.StatusBadGateway, ErrCodeRetrievalFailed, err.Error(), reqID)
	case errors.Is(err, llm.ErrGenerationFailure):
		respondErrorWithCode(w, http.StatusBadGateway, ErrCodeGenerationFailed, err.Error(), reqID)
	default:
		respondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), reqID)
	}
}
