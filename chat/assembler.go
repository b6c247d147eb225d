package chat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"legalrag/llm"
	"legalrag/retrieval"
)

const systemPrompt = "You are a helpful assistant. Use only the provided legal documents to answer user queries. Reference them when using them."

// CitationElements converts a bundle into the transport's citation panel
// entries, preserving bundle order.
func CitationElements(bundle retrieval.Bundle) []SourceElement {
	elements := make([]SourceElement, len(bundle))
	for i, src := range bundle {
		elements[i] = SourceElement{
			Name:    src.Title,
			Content: src.Text(),
			Display: DisplaySide,
		}
	}
	return elements
}

// BuildRequest merges history and retrieved sources into the generation
// request: a system message carrying the grounding instruction and the
// numbered source records, followed by the history unchanged. Source order
// is preserved; the citation display depends on it.
//
// With a positive maxTokens, trailing sources are dropped until the request
// fits the budget. History is never dropped.
func BuildRequest(history []llm.Message, bundle retrieval.Bundle, maxTokens int) []llm.Message {
	return buildRequest(history, bundle, maxTokens, countTokens)
}

func buildRequest(history []llm.Message, bundle retrieval.Bundle, maxTokens int, count func([]llm.Message) int) []llm.Message {
	for {
		messages := assemble(history, bundle)
		if maxTokens <= 0 || len(bundle) == 0 {
			return messages
		}
		if count(messages) <= maxTokens {
			return messages
		}
		bundle = bundle[:len(bundle)-1]
	}
}

func assemble(history []llm.Message, bundle retrieval.Bundle) []llm.Message {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if len(bundle) > 0 {
		sb.WriteString("\n")
		for i, src := range bundle {
			sb.WriteString(fmt.Sprintf("\nSource %d: %s\n", i+1, src.Title))
			sb.WriteString(src.Text())
			sb.WriteString("\n")
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sb.String()})
	messages = append(messages, history...)
	return messages
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens sizes the assembled request. A missing encoding disables the
// budget rather than failing the turn.
func countTokens(messages []llm.Message) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return 0
	}

	total := 0
	for _, msg := range messages {
		total += len(encoding.Encode(msg.Content, nil, nil))
	}
	return total
}
