// ABOUTME: OpenAI client for batched embeddings and grounded chat completion
// ABOUTME: Retries transient failures with backoff; caches embeddings by model+text
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docchat/docchat/internal/models"
	"github.com/docchat/docchat/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultBatchSize is the per-request embedding batch limit
	DefaultBatchSize = 64
)

// Known dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	BatchSize      int
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Temperature:    0.1,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		BatchSize:      DefaultBatchSize,
	}
}

// Client wraps the OpenAI API with retry logic and an embedding cache. It is
// both the embedding gateway and the completion provider of the pipeline.
type Client struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	temperature    float64
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
	batchSize      int

	mu    sync.Mutex
	cache map[string][]float64 // key: model + "\x00" + text
}

// NewClient creates an OpenAI client with the given configuration.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Client{
		client:         openai.NewClient(cfg.APIKey),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		batchSize:      cfg.BatchSize,
		cache:          make(map[string][]float64),
	}, nil
}

// Model returns the embedding model identifier.
func (c *Client) Model() string {
	return c.embeddingModel
}

// Dimension returns the vector dimension of the configured embedding model,
// or 0 when the model is unknown.
func (c *Client) Dimension() int {
	return modelDimensions[c.embeddingModel]
}

// EmbedBatch converts texts into embedding vectors, preserving input order.
// Requests larger than the batch limit are split transparently. Identical
// texts hit the cache. Exhausted retries surface models.ErrEmbeddingUnavailable.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]models.EmbeddingVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(texts))

	// Resolve cache hits first; collect the rest for API calls.
	var missing []int
	c.mu.Lock()
	for i, text := range texts {
		if v, ok := c.cache[c.cacheKey(text)]; ok {
			vectors[i] = v
		} else {
			missing = append(missing, i)
		}
	}
	c.mu.Unlock()

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		input := make([]string, len(batch))
		for i, idx := range batch {
			input[i] = texts[idx]
		}

		embedded, err := c.embedOnce(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
		}

		c.mu.Lock()
		for i, idx := range batch {
			vectors[idx] = embedded[i]
			c.cache[c.cacheKey(texts[idx])] = embedded[i]
		}
		c.mu.Unlock()
	}

	now := time.Now().UTC()
	out := make([]models.EmbeddingVector, len(texts))
	for i, v := range vectors {
		out[i] = models.EmbeddingVector{
			Model:     c.embeddingModel,
			Dimension: len(v),
			Vector:    v,
			CreatedAt: now,
		}
	}
	return out, nil
}

// embedOnce performs a single bounded-retry embedding request.
func (c *Client) embedOnce(ctx context.Context, input []string) ([][]float64, error) {
	var result [][]float64

	err := util.Do(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input: input,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(input) {
			return fmt.Errorf("expected %d embeddings, got %d", len(input), len(resp.Data))
		}

		result = make([][]float64, len(resp.Data))
		for i, d := range resp.Data {
			vec := make([]float64, len(d.Embedding))
			for j, f := range d.Embedding {
				vec[j] = float64(f)
			}
			result[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete sends prompt messages to the chat model and returns the answer
// text. Exhausted retries surface models.ErrGenerationUnavailable.
func (c *Client) Complete(ctx context.Context, prompt []models.PromptMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(prompt))
	for i, m := range prompt {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	var answer string
	err := util.Do(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    msgs,
			Temperature: float32(c.temperature),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	return answer, nil
}

func (c *Client) cacheKey(text string) string {
	return c.embeddingModel + "\x00" + text
}
