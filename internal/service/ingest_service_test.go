package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kuberag/kuberag-agent/internal/models"
)

func TestIngest(t *testing.T) {
	llm := &fakeLLM{}
	store := &fakeStore{}
	svc := NewIngestService(llm, store, discardLogger())

	resp, err := svc.Ingest(context.Background(), models.Document{
		Text:     "hello world",
		Metadata: map[string]string{"topic": "greeting"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.ID != "point-1" {
		t.Errorf("id = %q", resp.ID)
	}
	if resp.TextLength != len("hello world") {
		t.Errorf("text_length = %d", resp.TextLength)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserted))
	}
}

func TestIngest_EmptyTextRejected(t *testing.T) {
	svc := NewIngestService(&fakeLLM{}, &fakeStore{}, discardLogger())
	if _, err := svc.Ingest(context.Background(), models.Document{}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestIngest_EmbedFailurePropagates(t *testing.T) {
	svc := NewIngestService(&fakeLLM{embedErr: errors.New("embed down")}, &fakeStore{}, discardLogger())
	if _, err := svc.Ingest(context.Background(), models.Document{Text: "x"}); err == nil {
		t.Fatal("expected embed error to propagate")
	}
}

func TestBootstrap_SeedsFreshCollection(t *testing.T) {
	llm := &fakeLLM{}
	store := &fakeStore{created: true}
	svc := NewIngestService(llm, store, discardLogger())

	svc.Bootstrap(context.Background())
	if len(store.upserted) != len(sampleDocuments) {
		t.Errorf("expected %d seeded docs, got %d", len(sampleDocuments), len(store.upserted))
	}
}

func TestBootstrap_ExistingCollectionNotReseeded(t *testing.T) {
	store := &fakeStore{created: false}
	svc := NewIngestService(&fakeLLM{}, store, discardLogger())

	svc.Bootstrap(context.Background())
	if len(store.upserted) != 0 {
		t.Errorf("existing collection must not be reseeded, got %d upserts", len(store.upserted))
	}
}

func TestBootstrap_StoreNeverReadyIsNonFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // skip the wait loop immediately
	store := &fakeStore{readyErr: errors.New("connection refused")}
	svc := NewIngestService(&fakeLLM{}, store, discardLogger())

	svc.Bootstrap(ctx)
	if len(store.upserted) != 0 {
		t.Error("no seeding expected when the store never came up")
	}
}
