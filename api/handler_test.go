package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"legalrag/api"
	"legalrag/chat"
)

// stubResponder plays one scripted turn through the transport.
type stubResponder struct {
	sources []chat.SourceElement
	chunks  []string
	answer  string
	err     error

	lastTurn chat.TurnConfig
}

func (s *stubResponder) Respond(ctx context.Context, session *chat.Session, message string, turn chat.TurnConfig, transport chat.Transport) (chat.Response, error) {
	s.lastTurn = turn
	if s.err != nil {
		return chat.Response{}, s.err
	}
	if err := transport.SendSources(ctx, s.sources); err != nil {
		return chat.Response{}, err
	}
	for _, chunk := range s.chunks {
		if err := transport.StreamToken(ctx, chunk); err != nil {
			return chat.Response{}, err
		}
	}
	if err := transport.FinishMessage(ctx, s.answer); err != nil {
		return chat.Response{}, err
	}
	return chat.Response{SessionID: session.ID, Answer: s.answer}, nil
}

var _ api.Responder = (*stubResponder)(nil)

func testServer(responder api.Responder) *api.Server {
	return api.NewServer(":0", responder, log.New(io.Discard, "", 0))
}

func postChat(t *testing.T, server *api.Server, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	server := testServer(&stubResponder{})
	req := httptest.NewRequest(http.MethodGet, "/check/healthy", nil)
	resp, err := server.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health check status: %d", resp.StatusCode)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	server := testServer(&stubResponder{})
	resp := postChat(t, server, map[string]any{})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing message, got %d", resp.StatusCode)
	}
}

func TestChatStreamsSourcesBeforeChunks(t *testing.T) {
	server := testServer(&stubResponder{
		sources: []chat.SourceElement{{Name: "Liability Act", Content: "**Art. 5**", Display: chat.DisplaySide}},
		chunks:  []string{"Hel", "lo"},
		answer:  "Hello",
	})

	resp := postChat(t, server, map[string]any{"message": "What are the limits?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type: %q", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := string(data)

	sourcesAt := strings.Index(body, "event: sources")
	chunkAt := strings.Index(body, "event: chunk")
	doneAt := strings.Index(body, "event: done")
	if sourcesAt < 0 || chunkAt < 0 || doneAt < 0 {
		t.Fatalf("missing events in stream:\n%s", body)
	}
	if !(sourcesAt < chunkAt && chunkAt < doneAt) {
		t.Fatalf("event order wrong (sources=%d chunk=%d done=%d):\n%s", sourcesAt, chunkAt, doneAt, body)
	}
	if !strings.Contains(body, "Liability Act") {
		t.Fatalf("sources payload missing:\n%s", body)
	}
	if !strings.Contains(body, `"answer":"Hello"`) {
		t.Fatalf("done payload missing answer:\n%s", body)
	}
}

func TestChatForwardsTopK(t *testing.T) {
	responder := &stubResponder{answer: "ok"}
	server := testServer(responder)

	resp := postChat(t, server, map[string]any{"message": "q", "top_k": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status: %d", resp.StatusCode)
	}
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if responder.lastTurn.TopK != 3 {
		t.Fatalf("forwarded top_k: got %d, want 3", responder.lastTurn.TopK)
	}
}

func TestChatRejectsNonPositiveTopK(t *testing.T) {
	server := testServer(&stubResponder{answer: "ok"})
	resp := postChat(t, server, map[string]any{"message": "q", "top_k": -1})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative top_k, got %d", resp.StatusCode)
	}
}

func TestChatStreamsErrorEvent(t *testing.T) {
	server := testServer(&stubResponder{err: fmt.Errorf("generation blew up")})

	resp := postChat(t, server, map[string]any{"message": "q"})
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(data), "event: error") {
		t.Fatalf("expected error event:\n%s", data)
	}
}

func TestChatRejectsUnknownSession(t *testing.T) {
	server := testServer(&stubResponder{})
	resp := postChat(t, server, map[string]any{
		"message":    "q",
		"session_id": uuid.NewString(),
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}
}

func TestEndSession(t *testing.T) {
	server := testServer(&stubResponder{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/not-a-uuid", nil)
	resp, err := server.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session id, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/chat/"+uuid.NewString(), nil)
	resp, err = server.App().Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}
}
