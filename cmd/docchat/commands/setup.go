// ABOUTME: Shared pipeline construction for CLI commands
// ABOUTME: Builds storage, the embedding client, the index backend, and the core components
package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/core"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/index/memory"
	"github.com/docchat/docchat/internal/index/persist"
	"github.com/docchat/docchat/internal/index/qdrant"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/storage"
)

// pipeline bundles everything a command needs to ingest or answer.
type pipeline struct {
	cfg          *config.Config
	store        *storage.Storage
	client       *llm.Client
	idx          index.Index
	ingestor     *core.Ingestor
	orchestrator *core.Orchestrator
}

// buildPipeline loads configuration and wires the full pipeline. The caller
// must Close the pipeline when done.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	store, err := storage.NewStorage()
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	client, err := llm.NewClient(&llm.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Temperature:    cfg.Temperature,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		BatchSize:      cfg.EmbedBatchSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing OpenAI client: %w", err)
	}

	var idx index.Index
	switch cfg.IndexBackend {
	case "qdrant":
		idx = qdrant.NewStore(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
	default:
		// The in-process index is rebuilt from storage on every invocation.
		idx, err = persist.New(ctx, memory.NewStore(), store)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("rebuilding index: %w", err)
		}
	}

	chunker, err := core.NewChunker(cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing chunker: %w", err)
	}

	retriever := core.NewRetriever(client, idx)
	ingestor := core.NewIngestor(store, client, idx, chunker, cfg.EmbedBatchSize)
	orchestrator := core.NewOrchestrator(retriever, client, store, core.OrchestratorConfig{
		TopK:               cfg.TopK,
		ContextTokenBudget: cfg.ContextTokenBudget,
		HistoryMaxMessages: cfg.HistoryMaxMessages,
	})

	return &pipeline{
		cfg:          cfg,
		store:        store,
		client:       client,
		idx:          idx,
		ingestor:     ingestor,
		orchestrator: orchestrator,
	}, nil
}

// Close releases the pipeline's resources.
func (p *pipeline) Close() error {
	return p.store.Close()
}
