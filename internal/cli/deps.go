package cli

import (
	"fmt"
	"os"
	"time"

	"ragtutor/config"
	"ragtutor/internal/adapter/embedding"
	"ragtutor/internal/adapter/index"
	"ragtutor/internal/adapter/llm"
	"ragtutor/internal/adapter/store"
	"ragtutor/internal/port"
)

// newEmbedder builds the configured embedding provider.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL), nil
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// newIndex builds the configured vector index. The returned close
// function is a no-op for remote indexes.
func newIndex(cfg *config.Config) (port.VectorIndex, func() error, error) {
	switch cfg.Index.Provider {
	case "bolt":
		if _, err := cfg.EnsureDataDir(); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		idx, err := index.NewBoltIndex(cfg.VectorDBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
		}
		return idx, idx.Close, nil
	case "qdrant":
		idx := index.NewQdrantIndex(index.QdrantConfig{
			URL:       cfg.Index.URL,
			APIKey:    os.Getenv(cfg.Index.APIKeyEnv),
			BatchSize: cfg.Index.BatchSize,
		})
		return idx, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown index provider %q", cfg.Index.Provider)
	}
}

// openStore opens the SQLite metadata store, creating the data
// directory on first use.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if _, err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.MetadataDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	return st, nil
}

// newGenerator builds the Anthropic generator. Construction never
// fails; an absent credential surfaces later as a placeholder answer.
func newGenerator(cfg *config.Config) *llm.AnthropicGenerator {
	return llm.NewAnthropicGenerator(llm.Config{
		APIKeyEnv: cfg.Generator.APIKeyEnv,
		BaseURL:   cfg.Generator.BaseURL,
		Model:     cfg.Generator.Model,
		Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
}
