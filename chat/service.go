package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"legalrag/llm"
	"legalrag/retrieval"
)

// Service drives one retrieval+generation cycle per user turn. It holds no
// per-conversation state; the session is passed in by the transport.
type Service struct {
	retriever       *retrieval.Retriever
	llm             llm.Client
	tokenBudget     int
	generateTimeout time.Duration
	logger          *log.Logger
}

type Config struct {
	MaxContextTokens int
	GenerateTimeout  time.Duration
}

// TurnConfig carries per-turn overrides. Zero values fall back to the
// service-wide configuration.
type TurnConfig struct {
	// TopK bounds both retrieval stages for this turn.
	TopK int
}

func NewService(retriever *retrieval.Retriever, llmClient llm.Client, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		retriever:       retriever,
		llm:             llmClient,
		tokenBudget:     cfg.MaxContextTokens,
		generateTimeout: cfg.GenerateTimeout,
		logger:          logger,
	}
}

// Respond appends the user message to the session, retrieves sources, sends
// the citation elements to the transport before any token, streams the
// answer through the transport, and commits the assistant turn to history
// only after the stream reaches a valid terminal result. On retrieval
// failure the turn aborts before any generation call; on mid-stream failure
// the tokens already streamed stay with the transport and history keeps only
// the user turn. Overlapping calls on the same session run one at a time.
func (s *Service) Respond(ctx context.Context, session *Session, userMessage string, turn TurnConfig, transport Transport) (Response, error) {
	if session == nil {
		return Response{}, fmt.Errorf("session is required")
	}
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return Response{}, fmt.Errorf("message cannot be empty")
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	session.append(llm.Message{Role: llm.RoleUser, Content: userMessage})
	history := session.History()

	bundle, err := s.retriever.Retrieve(ctx, history, turn.TopK)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve sources: %w", err)
	}

	if transport != nil {
		if err := transport.SendSources(ctx, CitationElements(bundle)); err != nil {
			return Response{}, fmt.Errorf("send sources: %w", err)
		}
	}

	messages := BuildRequest(history, bundle, s.tokenBudget)

	genCtx := ctx
	if s.generateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.generateTimeout)
		defer cancel()
	}

	final, err := s.streamAnswer(genCtx, messages, transport)
	if err != nil {
		return Response{}, err
	}

	answer := strings.TrimSpace(final.Answer)
	session.append(llm.Message{Role: llm.RoleAssistant, Content: answer})

	if transport != nil {
		if err := transport.FinishMessage(ctx, answer); err != nil {
			s.logger.Printf("finish message: %v", err)
		}
	}

	return Response{SessionID: session.ID, Answer: answer, Sources: bundle}, nil
}

func (s *Service) streamAnswer(ctx context.Context, messages []llm.Message, transport Transport) (*llm.Prediction, error) {
	stream, err := s.llm.GenerateStream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("open generation stream: %w", err)
	}
	defer stream.Close()

	var final *llm.Prediction
	for {
		item, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("generation stream: %w", err)
		}

		switch item.Kind {
		case llm.ItemChunk:
			if transport != nil {
				if err := transport.StreamToken(ctx, item.Chunk); err != nil {
					return nil, fmt.Errorf("stream token: %w", err)
				}
			}
		case llm.ItemFinal:
			final = item.Final
		}
	}

	if final == nil {
		return nil, fmt.Errorf("%w: stream ended without a final prediction", llm.ErrGeneration)
	}
	return final, nil
}
