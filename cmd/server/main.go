package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/kuberag/kuberag-agent/internal/api/rest"
	"github.com/kuberag/kuberag-agent/internal/collector"
	"github.com/kuberag/kuberag-agent/internal/config"
	"github.com/kuberag/kuberag-agent/internal/k8s"
	"github.com/kuberag/kuberag-agent/internal/llm"
	"github.com/kuberag/kuberag-agent/internal/pkg/logger"
	"github.com/kuberag/kuberag-agent/internal/repository"
	"github.com/kuberag/kuberag-agent/internal/service"
	"github.com/kuberag/kuberag-agent/internal/vector"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.StdLogger(cfg.LogLevel)

	// Kubernetes is optional: without a cluster the service still answers
	// document-only queries.
	var cluster *k8s.Client
	if c, err := k8s.NewClient(cfg.KubeconfigPath); err != nil {
		log.Warn("no Kubernetes cluster available, /k8s endpoints disabled", "error", err)
	} else {
		cluster = c
		cluster.SetTimeout(time.Duration(cfg.K8sTimeoutSec) * time.Second)
		if cfg.K8sRateLimitPerSec > 0 {
			burst := cfg.K8sRateLimitBurst
			if burst <= 0 {
				burst = 1
			}
			cluster.SetLimiter(rate.NewLimiter(rate.Limit(cfg.K8sRateLimitPerSec), burst))
		}
	}
	col := collector.New(cluster)

	store := vector.NewClient(cfg.QdrantURL, cfg.Collection, cfg.VectorSize,
		vector.WithTimeout(time.Duration(cfg.VectorTimeoutSec)*time.Second))
	model := llm.NewClient(cfg.OllamaURL, cfg.OllamaEmbedURL, cfg.EmbedModel, cfg.GenerateModel,
		llm.WithTimeouts(
			time.Duration(cfg.EmbedTimeoutSec)*time.Second,
			time.Duration(cfg.GenerateTimeoutSec)*time.Second,
		))

	var auditRepo *repository.AuditRepository
	if repo, err := repository.NewAuditRepository(cfg.AuditDatabasePath); err != nil {
		log.Warn("audit trail disabled", "error", err)
	} else {
		auditRepo = repo
		defer auditRepo.Close()
	}

	var auditRecorder service.AuditRecorder
	var auditReader rest.AuditReader
	if auditRepo != nil {
		auditRecorder = auditRepo
		auditReader = auditRepo
	}

	querySvc := service.NewQueryService(model, store, col, auditRecorder, log, cfg.DefaultTopK, cfg.ContextCharLimit)
	ingestSvc := service.NewIngestService(model, store, log)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedSamples {
		go ingestSvc.Bootstrap(rootCtx)
	}

	handler := rest.NewHandler(querySvc, ingestSvc, col, store, auditReader)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(handler.Router())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsHandler,
		ReadTimeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "k8s_enabled", cluster != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
