package rest

import (
	"net/http"

	"github.com/kuberag/kuberag-agent/internal/collector"
)

func (h *Handler) handleClusterCPU(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.cluster.CollectNodeMetrics(r.Context())
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cluster_cpu": collector.AggregateCPU(snapshot),
	})
}

func (h *Handler) handleClusterMemory(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.cluster.CollectNodeMetrics(r.Context())
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cluster_memory": collector.AggregateMemory(snapshot),
	})
}

func (h *Handler) handleNodes(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.cluster.CollectNodeMetrics(r.Context())
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	details := collector.NodeDetails(snapshot)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": details,
		"count": len(details),
	})
}

func (h *Handler) handlePods(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	if namespace == "all" {
		namespace = ""
	}
	labelSelector := r.URL.Query().Get("label_selector")

	pods, err := h.cluster.CollectPods(r.Context(), namespace, labelSelector)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pods":  pods,
		"count": len(pods),
	})
}

func (h *Handler) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.cluster.CollectNamespaces(r.Context())
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"namespaces": namespaces,
		"count":      len(namespaces),
	})
}

func (h *Handler) handleClusterInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.cluster.ClusterInfo(r.Context())
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
