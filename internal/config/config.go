package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// External collaborators.
	OllamaURL      string `mapstructure:"ollama_url"`       // generation endpoint base
	OllamaEmbedURL string `mapstructure:"ollama_embed_url"` // embedding endpoint base; defaults to ollama_url
	QdrantURL      string `mapstructure:"qdrant_url"`

	// RAG pipeline.
	Collection       string `mapstructure:"collection"`
	EmbedModel       string `mapstructure:"embed_model"`
	GenerateModel    string `mapstructure:"generate_model"`
	VectorSize       int    `mapstructure:"vector_size"`
	DefaultTopK      int    `mapstructure:"default_top_k"`
	ContextCharLimit int    `mapstructure:"context_char_limit"` // fused context budget
	SeedSamples      bool   `mapstructure:"seed_samples"`       // upsert sample docs on startup

	// Kubernetes access.
	KubeconfigPath     string  `mapstructure:"kubeconfig_path"`
	K8sTimeoutSec      int     `mapstructure:"k8s_timeout_sec"`        // outbound K8s API calls; 0 = default
	K8sRateLimitPerSec float64 `mapstructure:"k8s_rate_limit_per_sec"` // token bucket rate (req/s); 0 = no limit
	K8sRateLimitBurst  int     `mapstructure:"k8s_rate_limit_burst"`

	// Timeouts.
	RequestTimeoutSec  int `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = server default
	EmbedTimeoutSec    int `mapstructure:"embed_timeout_sec"`    // Ollama embedding calls
	GenerateTimeoutSec int `mapstructure:"generate_timeout_sec"` // Ollama generation calls
	VectorTimeoutSec   int `mapstructure:"vector_timeout_sec"`   // Qdrant calls
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec"` // graceful shutdown wait

	AuditDatabasePath string `mapstructure:"audit_database_path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/kuberag/")
	viper.AddConfigPath("$HOME/.kuberag")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8000)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("ollama_url", "http://localhost:11434")
	viper.SetDefault("ollama_embed_url", "")
	viper.SetDefault("qdrant_url", "http://localhost:6333")
	viper.SetDefault("collection", "rag_memory")
	viper.SetDefault("embed_model", "all-minilm")
	viper.SetDefault("generate_model", "tinyllama")
	viper.SetDefault("vector_size", 384)
	viper.SetDefault("default_top_k", 3)
	viper.SetDefault("context_char_limit", 4000)
	viper.SetDefault("seed_samples", true)
	viper.SetDefault("kubeconfig_path", "")
	viper.SetDefault("k8s_timeout_sec", 10)
	viper.SetDefault("k8s_rate_limit_per_sec", 0) // 0 = disabled
	viper.SetDefault("k8s_rate_limit_burst", 0)
	viper.SetDefault("request_timeout_sec", 120)
	viper.SetDefault("embed_timeout_sec", 30)
	viper.SetDefault("generate_timeout_sec", 120)
	viper.SetDefault("vector_timeout_sec", 10)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("audit_database_path", "./kuberag.db")

	// Environment variables
	viper.SetEnvPrefix("KUBERAG")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.OllamaEmbedURL == "" {
		cfg.OllamaEmbedURL = cfg.OllamaURL
	}

	return &cfg, nil
}
