package models

// Document is the ingest payload: raw text plus free-form string metadata
// stored alongside the embedding.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RetrievedDocument is one similarity-search match. Score is cosine
// similarity in [0,1].
type RetrievedDocument struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FusedContext is the assembled generation context: top-K retrieved
// documents plus an optional live-cluster block, bounded by CharBudget.
type FusedContext struct {
	Docs           []RetrievedDocument `json:"retrieved_docs"`
	ClusterContext string              `json:"cluster_context,omitempty"`
	CharBudget     int                 `json:"total_char_budget"`
	// MetricsOmitted is set when the query was cluster-relevant but live
	// metrics could not be included (collection failed or budget exhausted).
	MetricsOmitted bool   `json:"metrics_omitted,omitempty"`
	OmitReason     string `json:"omit_reason,omitempty"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Prompt string `json:"prompt"`
	TopK   int    `json:"top_k,omitempty"`
}

// QueryResponse is the body of a successful POST /query.
type QueryResponse struct {
	Query           string              `json:"query"`
	Matches         []RetrievedDocument `json:"matches"`
	Response        string              `json:"response"`
	ClusterAware    bool                `json:"cluster_aware"`
	MetricsIncluded bool                `json:"cluster_metrics_included"`
}

// IngestResponse is the body of a successful POST /ingest.
type IngestResponse struct {
	Message    string `json:"message"`
	ID         string `json:"id"`
	TextLength int    `json:"text_length"`
}
