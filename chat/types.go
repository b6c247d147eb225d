package chat

import (
	"github.com/google/uuid"

	"legalrag/retrieval"
)

// DisplaySide is the display mode of citation elements: rendered next to the
// message, not inline.
const DisplaySide = "side"

// SourceElement is one citation panel entry, keyed by document title. The
// element order matches the bundle order; generated citations refer to
// sources positionally.
type SourceElement struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Display string `json:"display"`
}

type Response struct {
	SessionID uuid.UUID
	Answer    string
	Sources   retrieval.Bundle
}
