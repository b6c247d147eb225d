package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureCorpusSchema creates the hierarchical corpus tables the retrieval
// pipeline reads from. Ingestion is handled elsewhere; this exists so a fresh
// database can be brought to the expected shape. The position columns record
// insertion order, which is the display order for articles and paragraphs.
func EnsureCorpusSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document (
			uri TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			short_title TEXT NOT NULL DEFAULT '',
			abbreviation TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			preamble TEXT,
			embedding VECTOR(%d) NOT NULL
		)`, dimension),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS article (
			guid TEXT PRIMARY KEY,
			document_uri TEXT NOT NULL REFERENCES document(uri) ON DELETE CASCADE,
			position INT NOT NULL DEFAULT 0,
			number TEXT,
			heading TEXT,
			embedding VECTOR(%d) NOT NULL
		)`, dimension),
		`CREATE TABLE IF NOT EXISTS paragraph (
			guid TEXT PRIMARY KEY,
			article_guid TEXT NOT NULL REFERENCES article(guid) ON DELETE CASCADE,
			position INT NOT NULL DEFAULT 0,
			number TEXT,
			content TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS idx_article_document ON article(document_uri, position)",
		"CREATE INDEX IF NOT EXISTS idx_paragraph_article ON paragraph(article_guid, position)",
		"CREATE INDEX IF NOT EXISTS idx_document_embedding ON document USING ivfflat (embedding vector_l2_ops)",
		"CREATE INDEX IF NOT EXISTS idx_article_embedding ON article USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
