package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuberag/kuberag-agent/internal/models"
)

func doc(text string, score float64) models.RetrievedDocument {
	return models.RetrievedDocument{Text: text, Score: score}
}

// fusedChars measures the context exactly as BuildPrompt assembles it:
// docs joined by newlines, then a blank line before the cluster block.
func fusedChars(f models.FusedContext) int {
	total := 0
	for i, d := range f.Docs {
		total += len(d.Text)
		if i > 0 {
			total++
		}
	}
	if f.ClusterContext != "" {
		if total > 0 {
			total += 2
		}
		total += len(f.ClusterContext)
	}
	return total
}

func TestFuse_RanksByScoreAndCapsTopK(t *testing.T) {
	docs := []models.RetrievedDocument{
		doc("low", 0.1),
		doc("high", 0.9),
		doc("mid", 0.5),
	}
	fused := Fuse(docs, nil, 1000, 2)
	require.Len(t, fused.Docs, 2)
	assert.Equal(t, "high", fused.Docs[0].Text)
	assert.Equal(t, "mid", fused.Docs[1].Text)
}

func TestFuse_StableForTiedScores(t *testing.T) {
	docs := []models.RetrievedDocument{
		doc("first", 0.5),
		doc("second", 0.5),
	}
	fused := Fuse(docs, nil, 1000, 5)
	require.Len(t, fused.Docs, 2)
	assert.Equal(t, "first", fused.Docs[0].Text)
	assert.Equal(t, "second", fused.Docs[1].Text)
}

func TestFuse_DropsLowestScoredWholeUnderBudget(t *testing.T) {
	docs := []models.RetrievedDocument{
		doc(strings.Repeat("a", 50), 0.9),
		doc(strings.Repeat("b", 50), 0.8),
		doc(strings.Repeat("c", 50), 0.7),
	}
	// Room for two docs plus one joining newline, not three.
	fused := Fuse(docs, nil, 110, 5)
	require.Len(t, fused.Docs, 2)
	assert.Equal(t, 0.9, fused.Docs[0].Score)
	assert.Equal(t, 0.8, fused.Docs[1].Score)
	assert.LessOrEqual(t, fusedChars(fused), 110)
}

func TestFuse_BudgetSmallerThanSmallestDocYieldsNoDocs(t *testing.T) {
	fused := Fuse([]models.RetrievedDocument{doc(strings.Repeat("x", 100), 0.9)}, nil, 50, 5)
	assert.Empty(t, fused.Docs, "a document must never be truncated mid-text")
}

func TestFuse_ClusterBlockBudgetedBeforeDocs(t *testing.T) {
	state := &ClusterState{
		CPU: &models.ResourceAggregate{TotalUsage: 4, TotalCapacity: 8, UtilizationPercent: 50},
	}
	blockLen := len(renderClusterBlock(state))
	docs := []models.RetrievedDocument{doc(strings.Repeat("d", 40), 0.9)}

	fused := Fuse(docs, state, blockLen+10, 5)
	assert.NotEmpty(t, fused.ClusterContext)
	assert.False(t, fused.MetricsOmitted)
	assert.Empty(t, fused.Docs, "doc should be dropped once the cluster block consumed the budget")
	assert.LessOrEqual(t, fusedChars(fused), blockLen+10)
}

func TestFuse_ClusterBlockDroppedWholeWhenOverBudget(t *testing.T) {
	state := &ClusterState{
		Info: &models.ClusterInfo{Version: "v1.31.0", NodeCount: 3},
		CPU:  &models.ResourceAggregate{TotalUsage: 4, TotalCapacity: 8, UtilizationPercent: 50},
	}
	fused := Fuse([]models.RetrievedDocument{doc("tiny", 0.9)}, state, 20, 5)
	assert.Empty(t, fused.ClusterContext)
	assert.True(t, fused.MetricsOmitted)
	assert.Equal(t, "cluster context exceeds budget", fused.OmitReason)
	// The freed budget still serves the documents.
	require.Len(t, fused.Docs, 1)
}

func TestFuse_CountsJoinerBetweenDocsAndClusterBlock(t *testing.T) {
	state := &ClusterState{
		CPU: &models.ResourceAggregate{TotalUsage: 4, TotalCapacity: 8, UtilizationPercent: 50},
	}
	blockLen := len(renderClusterBlock(state))
	d := doc(strings.Repeat("d", 30), 0.9)

	// One char short of block + blank line + doc: the doc must be dropped
	// rather than overflow the assembled context.
	fused := Fuse([]models.RetrievedDocument{d}, state, blockLen+2+len(d.Text)-1, 5)
	assert.NotEmpty(t, fused.ClusterContext)
	assert.Empty(t, fused.Docs)

	// Exact fit keeps both.
	fused = Fuse([]models.RetrievedDocument{d}, state, blockLen+2+len(d.Text), 5)
	require.Len(t, fused.Docs, 1)
	assert.Equal(t, blockLen+2+len(d.Text), fusedChars(fused))
}

func TestFuse_NeverExceedsBudget(t *testing.T) {
	docs := []models.RetrievedDocument{
		doc(strings.Repeat("a", 33), 0.9),
		doc(strings.Repeat("b", 917), 0.8),
		doc(strings.Repeat("c", 5), 0.7),
	}
	state := &ClusterState{
		Memory: &models.ResourceAggregate{TotalUsage: 6, TotalCapacity: 16, UtilizationPercent: 37.5},
	}
	for _, budget := range []int{0, 10, 100, 500, 2000} {
		fused := Fuse(docs, state, budget, 5)
		assert.LessOrEqual(t, fusedChars(fused), budget, "budget %d", budget)
	}
}

func TestRenderClusterBlock(t *testing.T) {
	state := &ClusterState{
		Info:     &models.ClusterInfo{Version: "v1.31.0", NodeCount: 2},
		PodCount: 17,
		CPU:      &models.ResourceAggregate{TotalUsage: 4, TotalCapacity: 8, UtilizationPercent: 50},
		Memory:   &models.ResourceAggregate{TotalUsage: 6, TotalCapacity: 16, UtilizationPercent: 37.5},
	}
	block := renderClusterBlock(state)
	assert.True(t, strings.HasPrefix(block, "CURRENT CLUSTER STATE:"))
	assert.Contains(t, block, "- Kubernetes Version: v1.31.0")
	assert.Contains(t, block, "- Total Pods: 17")
	assert.Contains(t, block, "CPU USAGE:")
	assert.Contains(t, block, "- Utilization: 50%")
	assert.Contains(t, block, "MEMORY USAGE:")
	assert.Contains(t, block, "- Total Capacity: 16 GiB")
}

func TestBuildPrompt(t *testing.T) {
	fused := models.FusedContext{
		Docs:           []models.RetrievedDocument{doc("Kubernetes schedules pods.", 0.9)},
		ClusterContext: "CURRENT CLUSTER STATE:\n- Total Nodes: 2",
	}
	prompt := BuildPrompt(fused, "How many nodes do I have?")
	assert.True(t, strings.HasPrefix(prompt, "Use the context below to answer the user query."))
	assert.Contains(t, prompt, "Context:\nKubernetes schedules pods.\n\nCURRENT CLUSTER STATE:")
	assert.Contains(t, prompt, "User Query:\nHow many nodes do I have?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildPrompt_NoClusterBlock(t *testing.T) {
	fused := models.FusedContext{
		Docs: []models.RetrievedDocument{doc("alpha", 0.9), doc("beta", 0.8)},
	}
	prompt := BuildPrompt(fused, "q")
	assert.Contains(t, prompt, "Context:\nalpha\nbeta\n")
	assert.NotContains(t, prompt, "CURRENT CLUSTER STATE")
}
