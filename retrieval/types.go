package retrieval

import "strings"

// Document is one law in the corpus, identified by its URI. Embeddings are
// never read back by the pipeline; only the distance computed in the store
// travels with the value.
type Document struct {
	URI          string
	Title        string
	ShortTitle   string
	Abbreviation string
	Date         string
	Author       string
	Preamble     string
	Distance     float64
}

// Article is one article of a document, loaded with its paragraphs in
// position order.
type Article struct {
	GUID        string
	DocumentURI string
	Number      string
	Heading     string
	Paragraphs  []Paragraph
	Distance    float64
}

type Paragraph struct {
	GUID    string
	Number  string
	Content string
}

// Text renders the article the way the citation panel and the generation
// prompt display it: a bold "number heading" line followed by the paragraphs
// in order.
func (a Article) Text() string {
	var sb strings.Builder
	sb.WriteString("**")
	sb.WriteString(strings.TrimSpace(a.Number + " " + a.Heading))
	sb.WriteString("**")
	for _, p := range a.Paragraphs {
		sb.WriteByte('\n')
		sb.WriteString(p.Text())
	}
	return sb.String()
}

func (p Paragraph) Text() string {
	if p.Number != "" {
		return p.Number + " " + p.Content
	}
	return p.Content
}

// SourceDocument is one matched document with its matched articles, both in
// rank order from the search.
type SourceDocument struct {
	URI      string
	Title    string
	Articles []Article
}

// Text concatenates the matched articles, blank-line separated. This is the
// body of the document's citation element.
func (s SourceDocument) Text() string {
	parts := make([]string, len(s.Articles))
	for i, a := range s.Articles {
		parts[i] = a.Text()
	}
	return strings.Join(parts, "\n\n")
}

// Bundle is the ordered retrieval result for one query: documents in rank
// order, each with its articles in rank order. Built fresh per turn, never
// persisted.
type Bundle []SourceDocument
