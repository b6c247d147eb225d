package llm

import (
	"context"
	"errors"
	"fmt"

	"legalrag/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrGeneration marks any failure of the generation service, including a
// stream that ends without producing a final prediction.
var ErrGeneration = errors.New("generation service error")

type Message struct {
	Role    string
	Content string
}

type ItemKind int

const (
	// ItemChunk carries one text increment of the answer being generated.
	ItemChunk ItemKind = iota
	// ItemFinal carries the terminal prediction. It is the last item of a
	// well-formed stream; Recv returns io.EOF afterwards.
	ItemFinal
)

// StreamItem is the tagged stream element: a chunk of answer text or the
// final prediction, never both.
type StreamItem struct {
	Kind  ItemKind
	Chunk string
	Final *Prediction
}

// Prediction is the structured terminal result of one generation. Answer is
// the concatenation of every chunk the stream emitted.
type Prediction struct {
	Answer       string
	Model        string
	FinishReason string
}

// Stream is a single-pass, non-restartable sequence of items. Recv returns
// io.EOF once the stream is exhausted. Close releases the underlying
// connection and is safe to call at any point.
type Stream interface {
	Recv() (StreamItem, error)
	Close() error
}

type Client interface {
	GenerateStream(ctx context.Context, messages []Message) (Stream, error)
}

type Options struct {
	Provider string
	Model    string

	BaseURL string
	APIKey  string

	OllamaHost string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:   cfg.LLMProvider,
		Model:      cfg.LLMModel,
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		OllamaHost: cfg.OllamaHost,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai-compatible provider selected but LLM_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
