package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kuberag/kuberag-agent/internal/models"
	"github.com/kuberag/kuberag-agent/internal/pkg/metrics"
)

type IngestService struct {
	llm   LLM
	store VectorStore
	log   *slog.Logger
}

func NewIngestService(llm LLM, store VectorStore, log *slog.Logger) *IngestService {
	return &IngestService{llm: llm, store: store, log: log}
}

// Ingest embeds one document and upserts it into the vector store.
func (s *IngestService) Ingest(ctx context.Context, doc models.Document) (*models.IngestResponse, error) {
	if doc.Text == "" {
		return nil, errors.New("document text is required")
	}
	vector, err := s.llm.Embed(ctx, doc.Text)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Upsert(ctx, vector, doc)
	if err != nil {
		return nil, err
	}
	metrics.DocumentsIngestedTotal.Inc()
	return &models.IngestResponse{
		Message:    "Document ingested",
		ID:         id,
		TextLength: len(doc.Text),
	}, nil
}

// sampleDocuments seeds a fresh collection so the service answers useful
// queries before anyone has ingested real content.
var sampleDocuments = []models.Document{
	{
		Text:     "Go is a statically typed, compiled programming language designed for simplicity and efficient concurrency. Goroutines and channels make it well suited for networked services.",
		Metadata: map[string]string{"category": "programming", "topic": "go"},
	},
	{
		Text:     "Kubernetes is an open-source container orchestration platform that automates deploying, scaling, and managing containerized applications. It was originally designed by Google.",
		Metadata: map[string]string{"category": "devops", "topic": "kubernetes"},
	},
	{
		Text:     "The Kubernetes metrics API (metrics.k8s.io) exposes per-node and per-pod CPU and memory usage collected by metrics-server. It backs kubectl top and autoscaling decisions.",
		Metadata: map[string]string{"category": "devops", "topic": "metrics"},
	},
	{
		Text:     "Vector databases store and retrieve high-dimensional vectors efficiently. They are essential for semantic search, recommendation systems, and RAG applications.",
		Metadata: map[string]string{"category": "database", "topic": "vector-db"},
	},
	{
		Text:     "RAG (Retrieval Augmented Generation) combines information retrieval with language models to provide more accurate and contextual responses by grounding answers in retrieved documents.",
		Metadata: map[string]string{"category": "ai", "topic": "rag"},
	},
}

const (
	bootstrapAttempts = 30
	bootstrapInterval = 2 * time.Second
)

// Bootstrap waits for the vector store and model server, creates the
// collection if needed, and seeds sample documents into a fresh
// collection. Failures are logged and swallowed; the HTTP surface must
// come up even when collaborators are still starting.
func (s *IngestService) Bootstrap(ctx context.Context) {
	if err := s.waitFor(ctx, "vector store", s.store.Ready); err != nil {
		s.log.Warn("vector store not ready, skipping initialization", "error", err)
		return
	}
	if err := s.waitFor(ctx, "model server", s.llm.Ping); err != nil {
		s.log.Warn("model server not ready, skipping seeding", "error", err)
		return
	}

	created, err := s.store.EnsureCollection(ctx)
	if err != nil {
		s.log.Warn("collection bootstrap failed", "error", err)
		return
	}
	if !created {
		s.log.Info("collection already exists, skipping seeding")
		return
	}

	seeded := 0
	for _, doc := range sampleDocuments {
		if _, err := s.Ingest(ctx, doc); err != nil {
			s.log.Warn("failed to seed document", "topic", doc.Metadata["topic"], "error", err)
			continue
		}
		seeded++
	}
	s.log.Info("seeded sample documents", "count", seeded, "total", len(sampleDocuments))
}

func (s *IngestService) waitFor(ctx context.Context, name string, probe func(context.Context) error) error {
	var lastErr error
	for i := 0; i < bootstrapAttempts; i++ {
		if lastErr = probe(ctx); lastErr == nil {
			return nil
		}
		s.log.Info("waiting for dependency", "dependency", name, "attempt", i+1, "of", bootstrapAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bootstrapInterval):
		}
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, bootstrapAttempts, lastErr)
}
