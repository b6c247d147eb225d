package chat

import (
	"sync"

	"github.com/google/uuid"

	"legalrag/llm"
)

// Session holds one conversation's history for its lifetime. It is owned by
// the transport and handed to Respond per turn. Overlapping turns on the
// same session are serialized by Respond; sessions share nothing with each
// other.
type Session struct {
	ID uuid.UUID

	// turnMu serializes whole turns; mu guards the history slice.
	turnMu  sync.Mutex
	mu      sync.Mutex
	history []llm.Message
}

func NewSession() *Session {
	return &Session{ID: uuid.New()}
}

// History returns a copy; the session keeps exclusive ownership of the
// backing slice.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) append(msg llm.Message) {
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.mu.Unlock()
}
