package chat

import (
	"strings"
	"testing"

	"legalrag/llm"
	"legalrag/retrieval"
)

func testBundle() retrieval.Bundle {
	return retrieval.Bundle{
		{
			URI:   "d1",
			Title: "Liability Act",
			Articles: []retrieval.Article{
				{Number: "Art. 5", Heading: "Limits", Paragraphs: []retrieval.Paragraph{{Content: "Limited to the insured sum."}}},
			},
		},
		{
			URI:   "d2",
			Title: "Commerce Code",
			Articles: []retrieval.Article{
				{Number: "Art. 1", Heading: "Scope"},
			},
		},
	}
}

func TestBuildRequestShape(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "What are the limits?"},
	}

	messages := BuildRequest(history, testBundle(), 0)

	if len(messages) != 2 {
		t.Fatalf("expected system + history, got %d messages", len(messages))
	}
	if messages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role: %q", messages[0].Role)
	}
	if messages[1] != history[0] {
		t.Fatalf("history was not passed through unchanged: %+v", messages[1])
	}

	system := messages[0].Content
	first := strings.Index(system, "Source 1: Liability Act")
	second := strings.Index(system, "Source 2: Commerce Code")
	if first < 0 || second < 0 || second < first {
		t.Fatalf("source records missing or out of order:\n%s", system)
	}
	if !strings.Contains(system, "Limited to the insured sum.") {
		t.Fatalf("article paragraphs missing from source record:\n%s", system)
	}
}

func TestBuildRequestEmptyBundle(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleUser, Content: "q"}}
	messages := BuildRequest(history, nil, 0)

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if strings.Contains(messages[0].Content, "Source 1") {
		t.Fatalf("empty bundle must not produce source records:\n%s", messages[0].Content)
	}
}

func TestBuildRequestTrimsTrailingSources(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleUser, Content: "q"}}
	bundle := testBundle()

	// Budget of one: any request with more than one source is over.
	count := func(messages []llm.Message) int {
		total := 0
		for _, src := range bundle {
			if strings.Contains(messages[0].Content, src.Title) {
				total++
			}
		}
		return total
	}

	messages := buildRequest(history, bundle, 1, count)

	system := messages[0].Content
	if !strings.Contains(system, "Source 1: Liability Act") {
		t.Fatalf("leading source must survive trimming:\n%s", system)
	}
	if strings.Contains(system, "Commerce Code") {
		t.Fatalf("trailing source must be dropped first:\n%s", system)
	}
	if messages[len(messages)-1] != history[0] {
		t.Fatal("history must never be trimmed")
	}
}

func TestCitationElements(t *testing.T) {
	elements := CitationElements(testBundle())

	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elements))
	}
	if elements[0].Name != "Liability Act" || elements[1].Name != "Commerce Code" {
		t.Fatalf("element order or naming wrong: %+v", elements)
	}
	for _, el := range elements {
		if el.Display != DisplaySide {
			t.Fatalf("element display: %q", el.Display)
		}
	}
	if !strings.Contains(elements[0].Content, "**Art. 5 Limits**") {
		t.Fatalf("element body must carry the article rendering: %q", elements[0].Content)
	}
}
