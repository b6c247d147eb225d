package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"legalrag/embeddings"
	"legalrag/llm"
)

const defaultTopK = 5

// ErrHistorySerialization is returned when the conversation history cannot
// be rendered into the embedding input.
var ErrHistorySerialization = errors.New("history serialization error")

// SerializeHistory renders the conversation as the embedding input: one
// "role: content" line per message, newline separated. The format is part of
// the retrieval contract; identical histories must serialize to identical
// bytes because the result feeds the embedding service.
func SerializeHistory(history []llm.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("%w: history is empty", ErrHistorySerialization)
	}

	var sb strings.Builder
	for i, msg := range history {
		switch msg.Role {
		case llm.RoleUser, llm.RoleAssistant:
		default:
			return "", fmt.Errorf("%w: unknown role %q at position %d", ErrHistorySerialization, msg.Role, i)
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
	}
	return sb.String(), nil
}

// Retriever runs the two-stage search: top-k documents for the query
// embedding, then top-k articles within each matched document using the same
// embedding. Article lookups fan out concurrently, bounded by k.
type Retriever struct {
	store    VectorStore
	embedder embeddings.Embedder
	topK     int
	logger   *log.Logger
}

func NewRetriever(store VectorStore, embedder embeddings.Embedder, topK int, logger *log.Logger) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve embeds the serialized history and assembles the source bundle.
// k bounds both search stages for this call; k <= 0 falls back to the
// retriever's configured top-k. An empty corpus yields an empty bundle and
// no error.
func (r *Retriever) Retrieve(ctx context.Context, history []llm.Message, k int) (Bundle, error) {
	if k <= 0 {
		k = r.topK
	}

	serialized, err := SerializeHistory(history)
	if err != nil {
		return nil, err
	}

	vectors, err := r.embedder.Embed(ctx, []string{serialized})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vectors", embeddings.ErrEmbedding)
	}
	query := vectors[0]

	docs, err := r.store.SimilarDocuments(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	if len(docs) == 0 {
		r.logger.Printf("no documents matched, proceeding with empty sources")
		return Bundle{}, nil
	}

	matched := make([][]Article, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k)
	for i, doc := range docs {
		g.Go(func() error {
			articles, err := r.store.SimilarArticles(gctx, doc.URI, query, k)
			if err != nil {
				return fmt.Errorf("article search in %s: %w", doc.URI, err)
			}
			matched[i] = articles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := make(Bundle, len(docs))
	for i, doc := range docs {
		bundle[i] = SourceDocument{
			URI:      doc.URI,
			Title:    doc.Title,
			Articles: matched[i],
		}
	}
	return bundle, nil
}
