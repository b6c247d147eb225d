package retrieval_test

import (
	"testing"

	"legalrag/retrieval"
)

func TestArticleText(t *testing.T) {
	article := retrieval.Article{
		Number:  "Art. 5",
		Heading: "Limitation of liability",
		Paragraphs: []retrieval.Paragraph{
			{Number: "(1)", Content: "Liability is limited to the insured sum."},
			{Content: "Exceptions require written form."},
		},
	}

	want := "**Art. 5 Limitation of liability**\n(1) Liability is limited to the insured sum.\nExceptions require written form."
	if got := article.Text(); got != want {
		t.Fatalf("article rendering mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestArticleTextWithoutNumber(t *testing.T) {
	article := retrieval.Article{Heading: "Scope"}
	if got := article.Text(); got != "**Scope**" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestSourceDocumentText(t *testing.T) {
	src := retrieval.SourceDocument{
		Title: "Liability Act",
		Articles: []retrieval.Article{
			{Number: "Art. 1", Heading: "Scope"},
			{Number: "Art. 2", Heading: "Definitions"},
		},
	}

	want := "**Art. 1 Scope**\n\n**Art. 2 Definitions**"
	if got := src.Text(); got != want {
		t.Fatalf("source rendering mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}
