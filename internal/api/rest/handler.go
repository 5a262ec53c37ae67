// Package rest wires the HTTP API: the RAG endpoints, the cluster metrics
// endpoints, and the health/audit surfaces.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kuberag/kuberag-agent/internal/api/middleware"
	"github.com/kuberag/kuberag-agent/internal/models"
)

// QueryRunner answers RAG queries.
type QueryRunner interface {
	Query(ctx context.Context, prompt string, topK int) (*models.QueryResponse, error)
}

// Ingester stores documents.
type Ingester interface {
	Ingest(ctx context.Context, doc models.Document) (*models.IngestResponse, error)
}

// ClusterReader reads live cluster state for the /k8s endpoints.
type ClusterReader interface {
	Enabled() bool
	Health() (healthy bool, lastErr error)
	CollectNodeMetrics(ctx context.Context) (*models.ClusterSnapshot, error)
	CollectPods(ctx context.Context, namespace, labelSelector string) ([]models.PodSummary, error)
	CollectNamespaces(ctx context.Context) ([]models.NamespaceSummary, error)
	ClusterInfo(ctx context.Context) (*models.ClusterInfo, error)
}

// ReadyChecker probes the vector store for GET /ready.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// AuditReader lists recent query audit rows. May be nil (audit disabled).
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.QueryAudit, error)
}

type Handler struct {
	query   QueryRunner
	ingest  Ingester
	cluster ClusterReader
	store   ReadyChecker
	audit   AuditReader
}

func NewHandler(query QueryRunner, ingest Ingester, cluster ClusterReader, store ReadyChecker, audit AuditReader) *Handler {
	return &Handler{
		query:   query,
		ingest:  ingest,
		cluster: cluster,
		store:   store,
		audit:   audit,
	}
}

// Router builds the full route table with middleware applied.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.StructuredLog)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/ingest", h.handleIngest).Methods(http.MethodPost)
	r.HandleFunc("/query", h.handleQuery).Methods(http.MethodPost)

	r.HandleFunc("/k8s/cluster/cpu", h.handleClusterCPU).Methods(http.MethodGet)
	r.HandleFunc("/k8s/cluster/memory", h.handleClusterMemory).Methods(http.MethodGet)
	r.HandleFunc("/k8s/cluster/info", h.handleClusterInfo).Methods(http.MethodGet)
	r.HandleFunc("/k8s/nodes", h.handleNodes).Methods(http.MethodGet)
	r.HandleFunc("/k8s/pods", h.handlePods).Methods(http.MethodGet)
	r.HandleFunc("/k8s/namespaces", h.handleNamespaces).Methods(http.MethodGet)

	r.HandleFunc("/audit/recent", h.handleAuditRecent).Methods(http.MethodGet)

	return r
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
