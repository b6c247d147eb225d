package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legalrag/config"
)

// ErrEmbedding marks any failure of the embedding service, including a
// returned vector whose dimension does not match the configured one.
var ErrEmbedding = errors.New("embedding service error")

// Embedder turns texts into fixed-dimension vectors, one per input, in input
// order. The pipeline calls it with a single text per turn but the contract
// is batched.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int
	Timeout   time.Duration

	BaseURL string
	APIKey  string

	OllamaHost string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		Dimension:  cfg.EmbeddingDimension,
		Timeout:    cfg.EmbedTimeout,
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		OllamaHost: cfg.OllamaHost,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai-compatible provider selected but LLM_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}
