package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient talks to any OpenAI-compatible chat completions endpoint.
func NewOpenAIClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &openAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}
}

func (c *openAIClient) GenerateStream(ctx context.Context, messages []Message) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	inner, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat completion stream: %v", ErrGeneration, err)
	}

	return &openAIStream{inner: inner, model: c.model}, nil
}

// completionStream is what openAIStream consumes from go-openai.
type completionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

type openAIStream struct {
	inner  completionStream
	model  string
	answer strings.Builder
	finish string
	done   bool
}

func (s *openAIStream) Recv() (StreamItem, error) {
	if s.done {
		return StreamItem{}, io.EOF
	}

	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return StreamItem{
				Kind: ItemFinal,
				Final: &Prediction{
					Answer:       s.answer.String(),
					Model:        s.model,
					FinishReason: s.finish,
				},
			}, nil
		}
		if err != nil {
			s.done = true
			return StreamItem{}, fmt.Errorf("%w: receive stream chunk: %v", ErrGeneration, err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			s.finish = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}

		s.answer.WriteString(choice.Delta.Content)
		return StreamItem{Kind: ItemChunk, Chunk: choice.Delta.Content}, nil
	}
}

func (s *openAIStream) Close() error {
	return s.inner.Close()
}
