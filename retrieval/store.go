package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrStoreUnavailable marks any failure to reach or query the backing
	// store.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrDimensionMismatch is returned before any query when the embedding's
	// length differs from the store's configured dimension.
	ErrDimensionMismatch = errors.New("query embedding dimension mismatch")
)

// VectorStore exposes the two read-only nearest-neighbor queries the
// retriever needs. Results come back in ascending L2 distance, ties broken
// by primary key so the order is stable.
type VectorStore interface {
	SimilarDocuments(ctx context.Context, embedding []float32, k int) ([]Document, error)
	SimilarArticles(ctx context.Context, documentURI string, embedding []float32, k int) ([]Article, error)
}

type PostgresVectorStore struct {
	pool         *pgxpool.Pool
	dimension    int
	queryTimeout time.Duration
}

func NewPostgresVectorStore(pool *pgxpool.Pool, dimension int, queryTimeout time.Duration) *PostgresVectorStore {
	return &PostgresVectorStore{pool: pool, dimension: dimension, queryTimeout: queryTimeout}
}

func (s *PostgresVectorStore) checkQuery(embedding []float32, k int) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrDimensionMismatch)
	}
	if s.dimension > 0 && len(embedding) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dimension, len(embedding))
	}
	if k < 1 {
		return fmt.Errorf("k must be at least 1, got %d", k)
	}
	return nil
}

func (s *PostgresVectorStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresVectorStore) SimilarDocuments(ctx context.Context, embedding []float32, k int) ([]Document, error) {
	if err := s.checkQuery(embedding, k); err != nil {
		return nil, err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
        SELECT
            uri,
            title,
            COALESCE(short_title, ''),
            COALESCE(abbreviation, ''),
            COALESCE(date, ''),
            COALESCE(author, ''),
            COALESCE(preamble, ''),
            (embedding <-> $1::vector) AS distance
        FROM document
        ORDER BY embedding <-> $1::vector, uri
        LIMIT $2
    `, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: query similar documents: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	docs := make([]Document, 0, k)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.URI,
			&doc.Title,
			&doc.ShortTitle,
			&doc.Abbreviation,
			&doc.Date,
			&doc.Author,
			&doc.Preamble,
			&doc.Distance,
		); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", ErrStoreUnavailable, err)
		}
		docs = append(docs, doc)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, rows.Err())
	}

	return docs, nil
}

func (s *PostgresVectorStore) SimilarArticles(ctx context.Context, documentURI string, embedding []float32, k int) ([]Article, error) {
	if err := s.checkQuery(embedding, k); err != nil {
		return nil, err
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
        SELECT
            guid,
            document_uri,
            COALESCE(number, ''),
            COALESCE(heading, ''),
            (embedding <-> $2::vector) AS distance
        FROM article
        WHERE document_uri = $1
        ORDER BY embedding <-> $2::vector, guid
        LIMIT $3
    `, documentURI, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: query similar articles: %v", ErrStoreUnavailable, err)
	}

	articles := make([]Article, 0, k)
	index := make(map[string]int, k)
	for rows.Next() {
		var art Article
		if err := rows.Scan(&art.GUID, &art.DocumentURI, &art.Number, &art.Heading, &art.Distance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan article: %v", ErrStoreUnavailable, err)
		}
		index[art.GUID] = len(articles)
		articles = append(articles, art)
	}
	if rows.Err() != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, rows.Err())
	}
	rows.Close()

	if len(articles) == 0 {
		return articles, nil
	}

	if err := s.loadParagraphs(ctx, articles, index); err != nil {
		return nil, err
	}

	return articles, nil
}

// loadParagraphs attaches each article's paragraphs in position order with a
// single query over all matched articles.
func (s *PostgresVectorStore) loadParagraphs(ctx context.Context, articles []Article, index map[string]int) error {
	guids := make([]string, len(articles))
	for i, art := range articles {
		guids[i] = art.GUID
	}

	rows, err := s.pool.Query(ctx, `
        SELECT
            article_guid,
            guid,
            COALESCE(number, ''),
            COALESCE(content, '')
        FROM paragraph
        WHERE article_guid = ANY($1)
        ORDER BY article_guid, position
    `, guids)
	if err != nil {
		return fmt.Errorf("%w: query paragraphs: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var articleGUID string
		var para Paragraph
		if err := rows.Scan(&articleGUID, &para.GUID, &para.Number, &para.Content); err != nil {
			return fmt.Errorf("%w: scan paragraph: %v", ErrStoreUnavailable, err)
		}
		if i, ok := index[articleGUID]; ok {
			articles[i].Paragraphs = append(articles[i].Paragraphs, para)
		}
	}
	if rows.Err() != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, rows.Err())
	}

	return nil
}

var _ VectorStore = (*PostgresVectorStore)(nil)
