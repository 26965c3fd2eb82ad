// Package config loads the engine configuration from a TOML file in
// the inklet config directory, with environment overrides for
// credentials. Callers receive a plain struct; no process-wide state.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full engine configuration.
type Config struct {
	Data      DataConfig      `toml:"data"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

// DataConfig locates local state.
type DataConfig struct {
	// Dir holds the SQLite source database. Defaults to ~/.inklet.
	Dir string `toml:"dir"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// APIKey authenticates against the provider. Usually supplied via
	// the INKLET_OPENAI_API_KEY environment variable, not the file.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint, for Azure or Ollama's
	// compatible API.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Dimensions overrides the vector size for models that allow it.
	Dimensions int `toml:"dimensions"`

	// RequestsPerSecond rate-limits outgoing embedding calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// StoreConfig configures the chunk store backend.
type StoreConfig struct {
	// Backend selects "memory" or "pgvector".
	Backend string `toml:"backend"`

	// DSN is the Postgres connection string for pgvector.
	DSN string `toml:"dsn"`

	// Metric is "cosine" or "dot".
	Metric string `toml:"metric"`
}

// ChunkingConfig tunes the chunker.
type ChunkingConfig struct {
	TargetTokens  int `toml:"target_tokens"`
	OverlapTokens int `toml:"overlap_tokens"`
	MinTokens     int `toml:"min_tokens"`
}

// RetrievalConfig tunes the retrieval orchestrator.
type RetrievalConfig struct {
	TopK             int `toml:"top_k"`
	OverFetch        int `toml:"over_fetch"`
	ContextRadius    int `toml:"context_radius"`
	MaxContextTokens int `toml:"max_context_tokens"`
}

// DefaultDir returns the default inklet directory, ~/.inklet.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".inklet"), nil
}

// Load reads the configuration. A missing file is not an error; the
// defaults stand. A .env file in the working directory and the
// process environment both override the file for credentials.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file yet - that's fine, defaults apply.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Best effort; a missing .env is the common case.
	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			RequestsPerSecond: 5,
		},
		Store: StoreConfig{
			Backend: "memory",
			Metric:  "cosine",
		},
		Retrieval: RetrievalConfig{
			TopK:          10,
			OverFetch:     3,
			ContextRadius: 1,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("INKLET_OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("INKLET_PG_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("INKLET_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
}
