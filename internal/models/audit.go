package models

import "time"

// QueryAudit is one row of the query audit trail. Written best-effort
// after each /query; never blocks or fails the request.
type QueryAudit struct {
	ID              string    `json:"id" db:"id"`
	Prompt          string    `json:"prompt" db:"prompt"`
	ClusterRelevant bool      `json:"cluster_relevant" db:"cluster_relevant"`
	MetricsOmitted  bool      `json:"metrics_omitted" db:"metrics_omitted"`
	Matches         int       `json:"matches" db:"matches"`
	DurationMs      int64     `json:"duration_ms" db:"duration_ms"`
	Status          string    `json:"status" db:"status"` // ok, retrieval_failed, generation_failed
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
