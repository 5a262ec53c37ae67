package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kuberag/kuberag-agent/internal/models"
)

// ClusterState carries the live metrics rendered into the prompt when a
// query is cluster-relevant. Any field may be nil/zero; absent pieces are
// simply not rendered.
type ClusterState struct {
	Info     *models.ClusterInfo
	CPU      *models.ResourceAggregate
	Memory   *models.ResourceAggregate
	PodCount int
}

// Fuse merges retrieved documents and optional cluster state into a
// context bounded by budget characters. Documents are ranked by
// descending score (stable for ties) and capped at topK; when the budget
// is tight, the lowest-scored documents are dropped whole. A document is
// never truncated mid-text. The cluster block is budgeted before the
// documents and likewise dropped whole if it cannot fit.
func Fuse(docs []models.RetrievedDocument, state *ClusterState, budget, topK int) models.FusedContext {
	fused := models.FusedContext{CharBudget: budget}

	ranked := make([]models.RetrievedDocument, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	remaining := budget
	if state != nil {
		block := renderClusterBlock(state)
		if len(block) <= remaining {
			fused.ClusterContext = block
			remaining -= len(block)
		} else {
			fused.MetricsOmitted = true
			fused.OmitReason = "cluster context exceeds budget"
		}
	}

	used := 0
	for _, doc := range ranked {
		cost := len(doc.Text)
		if used > 0 {
			cost++ // joining newline
		} else if fused.ClusterContext != "" {
			cost += 2 // blank line joining docs to the cluster block
		}
		if used+cost > remaining {
			break
		}
		fused.Docs = append(fused.Docs, doc)
		used += cost
	}
	return fused
}

// renderClusterBlock formats live metrics for the prompt. The layout
// matches what operators see from the cluster endpoints, so answers can
// be checked against `kubectl top nodes`.
func renderClusterBlock(state *ClusterState) string {
	var b strings.Builder
	b.WriteString("CURRENT CLUSTER STATE:\n")
	if state.Info != nil {
		fmt.Fprintf(&b, "- Kubernetes Version: %s\n", state.Info.Version)
		fmt.Fprintf(&b, "- Total Nodes: %d\n", state.Info.NodeCount)
	}
	if state.PodCount > 0 {
		fmt.Fprintf(&b, "- Total Pods: %d\n", state.PodCount)
	}
	if state.CPU != nil {
		b.WriteString("\nCPU USAGE:\n")
		fmt.Fprintf(&b, "- Total Usage: %v cores\n", state.CPU.TotalUsage)
		fmt.Fprintf(&b, "- Total Capacity: %v cores\n", state.CPU.TotalCapacity)
		fmt.Fprintf(&b, "- Utilization: %v%%\n", state.CPU.UtilizationPercent)
	}
	if state.Memory != nil {
		b.WriteString("\nMEMORY USAGE:\n")
		fmt.Fprintf(&b, "- Total Usage: %v GiB\n", state.Memory.TotalUsage)
		fmt.Fprintf(&b, "- Total Capacity: %v GiB\n", state.Memory.TotalCapacity)
		fmt.Fprintf(&b, "- Utilization: %v%%\n", state.Memory.UtilizationPercent)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt renders the final prompt sent to the model.
func BuildPrompt(fused models.FusedContext, query string) string {
	texts := make([]string, 0, len(fused.Docs))
	for _, doc := range fused.Docs {
		texts = append(texts, doc.Text)
	}
	context := strings.Join(texts, "\n")
	if fused.ClusterContext != "" {
		if context != "" {
			context += "\n\n"
		}
		context += fused.ClusterContext
	}
	return fmt.Sprintf("Use the context below to answer the user query.\n\nContext:\n%s\n\nUser Query:\n%s\n\nAnswer:", context, query)
}
