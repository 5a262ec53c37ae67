// Package rag holds the pure pipeline logic between retrieval and
// generation: relevance gating, context fusion, and prompt assembly.
// Everything here is deterministic and side-effect free.
package rag

import "strings"

// clusterKeywords gates whether a query should pull live cluster metrics
// into its context. Substring match keeps plurals and compounds ("pods",
// "cpus", "node-level") in scope.
var clusterKeywords = []string{
	"cpu",
	"memory",
	"pod",
	"node",
	"cluster",
	"resource",
	"usage",
	"utilization",
	"namespace",
	"kubernetes",
	"scale",
	"scaling",
}

// IsClusterRelevant reports whether the query concerns cluster state.
// Case-insensitive; a query with no cluster vocabulary never triggers a
// metrics round-trip.
func IsClusterRelevant(query string) bool {
	lowered := strings.ToLower(query)
	for _, kw := range clusterKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
