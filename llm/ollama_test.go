package llm

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func ndjsonStream(t *testing.T, lines ...string) *ollamaStream {
	t.Helper()
	body := io.NopCloser(strings.NewReader(strings.Join(lines, "\n")))
	return &ollamaStream{
		body:  body,
		dec:   json.NewDecoder(body),
		model: "test-model",
	}
}

func TestOllamaStreamChunksThenFinal(t *testing.T) {
	stream := ndjsonStream(t,
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
	)

	var chunks []string
	var final *Prediction
	for {
		item, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		switch item.Kind {
		case ItemChunk:
			chunks = append(chunks, item.Chunk)
		case ItemFinal:
			final = item.Final
		}
	}

	if strings.Join(chunks, "") != "Hello" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
	if final == nil || final.Answer != "Hello" || final.FinishReason != "stop" {
		t.Fatalf("unexpected final: %+v", final)
	}
}

func TestOllamaStreamReportsUpstreamError(t *testing.T) {
	stream := ndjsonStream(t, `{"error":"model not found"}`)

	_, err := stream.Recv()
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected generation error, got: %v", err)
	}
}

func TestOllamaStreamTruncatedBody(t *testing.T) {
	stream := ndjsonStream(t, `{"message":{"content":"x"},"done":false}`)

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("first chunk must succeed: %v", err)
	}

	// Body ends without a done marker; that is a broken stream, not EOF.
	_, err := stream.Recv()
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected generation error for truncated stream, got: %v", err)
	}
}
