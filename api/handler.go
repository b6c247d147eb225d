package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"legalrag/chat"
)

// Responder is the slice of chat.Service the handler needs.
type Responder interface {
	Respond(ctx context.Context, session *chat.Session, message string, turn chat.TurnConfig, transport chat.Transport) (chat.Response, error)
}

type ChatParams struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" validate:"required"`
	TopK      int    `json:"top_k" validate:"omitempty,gte=1"`
}

var validate = validator.New()

func (params *ChatParams) Validate() map[string]string {
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		failures := make(map[string]string)
		for _, e := range errs {
			failures[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return failures
	}
	return nil
}

// ChatHandler owns the in-memory session registry. Sessions are created on
// first use and live until explicitly ended.
type ChatHandler struct {
	responder Responder

	mu       sync.Mutex
	sessions map[uuid.UUID]*chat.Session
}

func NewChatHandler(responder Responder) *ChatHandler {
	return &ChatHandler{
		responder: responder,
		sessions:  make(map[uuid.UUID]*chat.Session),
	}
}

func (h *ChatHandler) session(id string) (*chat.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id == "" {
		sess := chat.NewSession()
		h.sessions[sess.ID] = sess
		return sess, nil
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, NewError(fiber.StatusBadRequest, "invalid session id")
	}
	sess, ok := h.sessions[parsed]
	if !ok {
		return nil, NewError(fiber.StatusNotFound, "session not found")
	}
	return sess, nil
}

// HandleChat runs one conversation turn and streams the result as
// server-sent events: a "sources" event with the citation elements first,
// then "chunk" events, then "done" with the final answer, or "error". Chunks
// already written stay on the wire when a later event is an error.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if failures := params.Validate(); len(failures) > 0 {
		return NewValidationError(failures)
	}

	sess, err := h.session(params.SessionID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// The request context is canceled when the client disconnects, which
	// tears down in-flight storage and generation calls.
	reqCtx := c.Context()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		transport := newSSETransport(w)
		resp, err := h.responder.Respond(reqCtx, sess, params.Message, chat.TurnConfig{TopK: params.TopK}, transport)
		if err != nil {
			transport.sendError(statusFor(err), err)
			return
		}
		transport.sendDone(resp)
	}))

	return nil
}

// HandleEndSession discards a session's state.
func (h *ChatHandler) HandleEndSession(c *fiber.Ctx) error {
	parsed, err := uuid.Parse(c.Params("session"))
	if err != nil {
		return NewError(fiber.StatusBadRequest, "invalid session id")
	}

	h.mu.Lock()
	_, ok := h.sessions[parsed]
	delete(h.sessions, parsed)
	h.mu.Unlock()

	if !ok {
		return NewError(fiber.StatusNotFound, "session not found")
	}
	return c.JSON(fiber.Map{"result": "ok"})
}

// sseTransport writes chat.Transport calls as server-sent events, flushing
// after every event so tokens reach the client as they are generated.
type sseTransport struct {
	w *bufio.Writer
}

func newSSETransport(w *bufio.Writer) *sseTransport {
	return &sseTransport{w: w}
}

func (t *sseTransport) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(t.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	return t.w.Flush()
}

func (t *sseTransport) SendSources(ctx context.Context, elements []chat.SourceElement) error {
	return t.event("sources", fiber.Map{"sources": elements})
}

func (t *sseTransport) StreamToken(ctx context.Context, token string) error {
	return t.event("chunk", fiber.Map{"text": token})
}

func (t *sseTransport) FinishMessage(ctx context.Context, answer string) error {
	return nil
}

func (t *sseTransport) sendDone(resp chat.Response) {
	_ = t.event("done", fiber.Map{
		"session_id": resp.SessionID.String(),
		"answer":     resp.Answer,
	})
}

func (t *sseTransport) sendError(code int, err error) {
	_ = t.event("error", fiber.Map{"code": code, "error": err.Error()})
}

var _ chat.Transport = (*sseTransport)(nil)
