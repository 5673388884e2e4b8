// ABOUTME: Centralized configuration for the docchat pipeline
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all externally tunable settings. Nothing here is hardcoded
// into pipeline logic; components receive values from this struct.
type Config struct {
	// OpenAI settings
	OpenAIKey      string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Chunking settings
	ChunkMaxTokens     int
	ChunkOverlapTokens int

	// Retrieval settings
	TopK               int
	ContextTokenBudget int

	// Generation settings
	HistoryMaxMessages int
	Temperature        float64

	// Embedding batch settings
	EmbedBatchSize int

	// Index backend: "memory" or "qdrant"
	IndexBackend string
	QdrantURL    string
	QdrantAPIKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		ChatModel:          getEnv("DOCCHAT_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     getEnv("DOCCHAT_EMBEDDING_MODEL", "text-embedding-3-small"),
		Timeout:            getEnvDuration("DOCCHAT_TIMEOUT", 30*time.Second),
		MaxRetries:         getEnvInt("DOCCHAT_MAX_RETRIES", 3),
		RetryDelay:         getEnvDuration("DOCCHAT_RETRY_DELAY", 2*time.Second),
		ChunkMaxTokens:     getEnvInt("DOCCHAT_CHUNK_TOKENS", 200),
		ChunkOverlapTokens: getEnvInt("DOCCHAT_CHUNK_OVERLAP", 40),
		TopK:               getEnvInt("DOCCHAT_TOP_K", 5),
		ContextTokenBudget: getEnvInt("DOCCHAT_CONTEXT_BUDGET", 1500),
		HistoryMaxMessages: getEnvInt("DOCCHAT_HISTORY_MESSAGES", 20),
		Temperature:        getEnvFloat("DOCCHAT_TEMPERATURE", 0.1),
		EmbedBatchSize:     getEnvInt("DOCCHAT_EMBED_BATCH", 64),
		IndexBackend:       getEnv("DOCCHAT_INDEX", "memory"),
		QdrantURL:          getEnv("DOCCHAT_QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       os.Getenv("DOCCHAT_QDRANT_API_KEY"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("DOCCHAT_CHUNK_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.ChunkOverlapTokens < 0 || c.ChunkOverlapTokens >= c.ChunkMaxTokens {
		return fmt.Errorf("DOCCHAT_CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkMaxTokens, c.ChunkOverlapTokens)
	}
	if c.TopK < 1 {
		return fmt.Errorf("DOCCHAT_TOP_K must be >= 1, got %d", c.TopK)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("DOCCHAT_CONTEXT_BUDGET must be positive, got %d", c.ContextTokenBudget)
	}
	if c.HistoryMaxMessages < 2 {
		return fmt.Errorf("DOCCHAT_HISTORY_MESSAGES must be >= 2, got %d", c.HistoryMaxMessages)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("DOCCHAT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("DOCCHAT_EMBED_BATCH must be >= 1, got %d", c.EmbedBatchSize)
	}
	if c.IndexBackend != "memory" && c.IndexBackend != "qdrant" {
		return fmt.Errorf("DOCCHAT_INDEX must be memory or qdrant, got %q", c.IndexBackend)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
