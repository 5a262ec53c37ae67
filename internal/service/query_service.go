// Package service orchestrates the RAG pipeline across the vector store,
// the model server, and the cluster collectors. Services hold no request
// state; every call works from its own context.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kuberag/kuberag-agent/internal/collector"
	"github.com/kuberag/kuberag-agent/internal/models"
	"github.com/kuberag/kuberag-agent/internal/pkg/metrics"
	"github.com/kuberag/kuberag-agent/internal/rag"
)

// LLM is the model-server surface the pipeline needs.
type LLM interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
}

// VectorStore is the retrieval surface the pipeline needs.
type VectorStore interface {
	Ready(ctx context.Context) error
	EnsureCollection(ctx context.Context) (created bool, err error)
	Upsert(ctx context.Context, vector []float32, doc models.Document) (string, error)
	Search(ctx context.Context, vector []float32, topK int) ([]models.RetrievedDocument, error)
}

// ClusterSource reads live cluster state. Enabled is false when no
// cluster is configured; queries then run document-only.
type ClusterSource interface {
	Enabled() bool
	CollectNodeMetrics(ctx context.Context) (*models.ClusterSnapshot, error)
	CollectPods(ctx context.Context, namespace, labelSelector string) ([]models.PodSummary, error)
	ClusterInfo(ctx context.Context) (*models.ClusterInfo, error)
}

// AuditRecorder persists per-query audit rows. May be nil (audit disabled).
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.QueryAudit) error
}

type QueryService struct {
	llm     LLM
	store   VectorStore
	cluster ClusterSource
	audit   AuditRecorder
	log     *slog.Logger

	defaultTopK int
	charBudget  int
}

func NewQueryService(llm LLM, store VectorStore, cluster ClusterSource, audit AuditRecorder, log *slog.Logger, defaultTopK, charBudget int) *QueryService {
	return &QueryService{
		llm:         llm,
		store:       store,
		cluster:     cluster,
		audit:       audit,
		log:         log,
		defaultTopK: defaultTopK,
		charBudget:  charBudget,
	}
}

// Query answers a prompt with retrieval-augmented generation. Embedding+
// search and cluster collection run concurrently; a metrics failure
// degrades to document-only context, while retrieval or generation
// failures surface as errors.
func (s *QueryService) Query(ctx context.Context, prompt string, topK int) (*models.QueryResponse, error) {
	start := time.Now()
	if topK <= 0 {
		topK = s.defaultTopK
	}
	relevant := rag.IsClusterRelevant(prompt)
	clusterEnabled := s.cluster != nil && s.cluster.Enabled()

	var (
		docs       []models.RetrievedDocument
		state      *rag.ClusterState
		metricsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedStart := time.Now()
		vector, err := s.llm.Embed(gctx, prompt)
		metrics.EmbedDurationSeconds.Observe(time.Since(embedStart).Seconds())
		if err != nil {
			return err
		}
		searchStart := time.Now()
		docs, err = s.store.Search(gctx, vector, topK)
		metrics.VectorSearchDurationSeconds.Observe(time.Since(searchStart).Seconds())
		return err
	})
	if relevant && clusterEnabled {
		g.Go(func() error {
			// Collection errors stay local: the query proceeds without
			// cluster context rather than failing.
			state, metricsErr = s.collectClusterState(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.recordAudit(prompt, relevant, relevant, 0, "retrieval_failed", start)
		return nil, err
	}

	fused := rag.Fuse(docs, state, s.charBudget, topK)
	if relevant && state == nil && !fused.MetricsOmitted {
		fused.MetricsOmitted = true
		if metricsErr != nil {
			fused.OmitReason = metricsErr.Error()
		} else {
			fused.OmitReason = "no cluster configured"
		}
	}
	if fused.MetricsOmitted {
		// The counter alarms on a configured cluster failing to answer;
		// running without any cluster is a normal deployment mode.
		if clusterEnabled {
			metrics.MetricsDegradedTotal.Inc()
		}
		s.log.Warn("answering without cluster metrics", "reason", fused.OmitReason)
	}

	generateStart := time.Now()
	answer, err := s.llm.Generate(ctx, rag.BuildPrompt(fused, prompt))
	metrics.GenerateDurationSeconds.Observe(time.Since(generateStart).Seconds())
	if err != nil {
		s.recordAudit(prompt, relevant, fused.MetricsOmitted, len(fused.Docs), "generation_failed", start)
		return nil, err
	}

	s.recordAudit(prompt, relevant, fused.MetricsOmitted, len(fused.Docs), "ok", start)
	return &models.QueryResponse{
		Query:           prompt,
		Matches:         fused.Docs,
		Response:        answer,
		ClusterAware:    relevant,
		MetricsIncluded: fused.ClusterContext != "",
	}, nil
}

func (s *QueryService) collectClusterState(ctx context.Context) (*rag.ClusterState, error) {
	snapshot, err := s.cluster.CollectNodeMetrics(ctx)
	if err != nil {
		return nil, err
	}
	cpu := collector.AggregateCPU(snapshot)
	memory := collector.AggregateMemory(snapshot)
	state := &rag.ClusterState{CPU: &cpu, Memory: &memory}

	// Info and pod count are garnish: keep the state usable when only the
	// metrics API answered.
	if info, err := s.cluster.ClusterInfo(ctx); err == nil {
		state.Info = info
	}
	if pods, err := s.cluster.CollectPods(ctx, "", ""); err == nil {
		state.PodCount = len(pods)
	}
	return state, nil
}

func (s *QueryService) recordAudit(prompt string, relevant, omitted bool, matches int, status string, start time.Time) {
	if s.audit == nil {
		return
	}
	// Detached context: audit writes must not inherit a cancelled request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	audit := &models.QueryAudit{
		Prompt:          prompt,
		ClusterRelevant: relevant,
		MetricsOmitted:  omitted,
		Matches:         matches,
		DurationMs:      time.Since(start).Milliseconds(),
		Status:          status,
	}
	if err := s.audit.Record(ctx, audit); err != nil {
		s.log.Warn("audit write failed", "error", err)
	}
}
