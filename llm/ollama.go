package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaClient struct {
	host   string
	model  string
	client *http.Client
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message    ollamaChatMessage `json:"message"`
	Done       bool              `json:"done"`
	DoneReason string            `json:"done_reason"`
	Error      string            `json:"error"`
}

// NewOllamaClient is the local-development alternative to the
// OpenAI-compatible client. No client timeout is set because the stream is
// expected to stay open for the whole generation; cancellation comes from
// the request context.
func NewOllamaClient(opts Options) Client {
	host := strings.TrimRight(opts.OllamaHost, "/")
	if host == "" {
		host = "http://localhost:11434"
	}

	return &ollamaClient{
		host:   host,
		model:  opts.Model,
		client: &http.Client{},
	}
}

func (c *ollamaClient) GenerateStream(ctx context.Context, messages []Message) (Stream, error) {
	payload := ollamaChatRequest{
		Model:    c.model,
		Stream:   true,
		Messages: make([]ollamaChatMessage, len(messages)),
	}
	for i := range messages {
		payload.Messages[i] = ollamaChatMessage(messages[i])
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal chat request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create chat request: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call chat API: %v", ErrGeneration, err)
	}

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if len(data) > 0 {
			return nil, fmt.Errorf("%w: chat API error: %s", ErrGeneration, string(data))
		}
		return nil, fmt.Errorf("%w: chat API returned status %s", ErrGeneration, resp.Status)
	}

	return &ollamaStream{
		body:  resp.Body,
		dec:   json.NewDecoder(resp.Body),
		model: c.model,
	}, nil
}

type ollamaStream struct {
	body   io.ReadCloser
	dec    *json.Decoder
	model  string
	answer strings.Builder
	done   bool
}

func (s *ollamaStream) Recv() (StreamItem, error) {
	if s.done {
		return StreamItem{}, io.EOF
	}

	for {
		var chunk ollamaChatResponse
		if err := s.dec.Decode(&chunk); err != nil {
			s.done = true
			return StreamItem{}, fmt.Errorf("%w: decode stream response: %v", ErrGeneration, err)
		}

		if chunk.Error != "" {
			s.done = true
			return StreamItem{}, fmt.Errorf("%w: %s", ErrGeneration, chunk.Error)
		}

		if chunk.Done {
			s.done = true
			return StreamItem{
				Kind: ItemFinal,
				Final: &Prediction{
					Answer:       s.answer.String(),
					Model:        s.model,
					FinishReason: chunk.DoneReason,
				},
			}, nil
		}

		if chunk.Message.Content == "" {
			continue
		}

		s.answer.WriteString(chunk.Message.Content)
		return StreamItem{Kind: ItemChunk, Chunk: chunk.Message.Content}, nil
	}
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
