// Package cli provides the command-line interface (primary/driving adapter).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	chunkmem "github.com/inklet-labs/inklet/internal/adapters/driven/chunkstore/memory"
	"github.com/inklet-labs/inklet/internal/adapters/driven/chunkstore/pgvector"
	"github.com/inklet-labs/inklet/internal/adapters/driven/embedding/openai"
	"github.com/inklet-labs/inklet/internal/adapters/driven/sourcestore/sqlite"
	"github.com/inklet-labs/inklet/internal/config"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/core/services"
	"github.com/inklet-labs/inklet/internal/logger"
	"github.com/inklet-labs/inklet/internal/reranker"
	"github.com/inklet-labs/inklet/internal/textproc/chunker"
	"github.com/inklet-labs/inklet/internal/tokens"
)

var (
	verbose    bool
	configPath string

	// Services are wired lazily on first use so flag parsing and help
	// never touch the stores. Tests inject mocks directly.
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	closers          []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "inklet",
	Short: "Ingest and search your notes and documents",
	Long: `Inklet turns notes and PDF text into searchable chunks.

Sources are normalised, split into overlapping chunks, embedded and
stored. Searches combine vector similarity with lexical overlap to
rank the most relevant passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml")
}

// Execute runs the root command and releases wired services.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// ensureServices builds the service graph from configuration. A
// second call is a no-op, which also lets tests pre-wire mocks.
func ensureServices(ctx context.Context) error {
	if ingestService != nil && retrievalService != nil {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sourceStore, err := sqlite.NewSourceStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("open source store: %w", err)
	}
	closers = append(closers, sourceStore)

	if cfg.Embedding.APIKey == "" {
		return errors.New("no embedding API key configured; set INKLET_OPENAI_API_KEY")
	}
	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	closers = append(closers, embedder)

	chunkStore, err := buildChunkStore(ctx, cfg, embedder.Dimensions())
	if err != nil {
		return err
	}
	closers = append(closers, chunkStore)

	ingestService = services.NewIngestService(sourceStore, chunkStore, embedder, services.IngestConfig{
		Chunker: chunker.Config{
			TargetTokens:  cfg.Chunking.TargetTokens,
			OverlapTokens: cfg.Chunking.OverlapTokens,
			MinTokens:     cfg.Chunking.MinTokens,
		},
	})

	// Token counting is optional; retrieval degrades to an unbounded
	// context budget when the encoding is unavailable.
	var counter *tokens.Counter
	if c, err := tokens.NewCounter(tokens.DefaultEncoding); err == nil {
		counter = c
	} else {
		logger.Warn("Token counter unavailable: %v", err)
	}

	retrievalService = services.NewRetrievalService(chunkStore, embedder, counter, services.RetrievalConfig{
		Weights:          reranker.DefaultWeights(),
		OverFetch:        cfg.Retrieval.OverFetch,
		MaxContextTokens: cfg.Retrieval.MaxContextTokens,
	})
	return nil
}

func buildChunkStore(ctx context.Context, cfg *config.Config, dimensions int) (driven.ChunkStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return chunkmem.NewChunkStore(chunkmem.Metric(cfg.Store.Metric)), nil
	case "pgvector":
		store, err := pgvector.NewChunkStore(ctx, pgvector.Config{
			DSN:        cfg.Store.DSN,
			Dimensions: dimensions,
			Metric:     pgvector.Metric(cfg.Store.Metric),
		})
		if err != nil {
			return nil, fmt.Errorf("open chunk store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown chunk store backend %q", cfg.Store.Backend)
	}
}

func closeServices() {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	closers = nil
}
