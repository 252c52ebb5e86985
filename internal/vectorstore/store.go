// Package vectorstore persists profile chunks and their embeddings in
// PostgreSQL with the pgvector extension, and answers nearest-neighbor
// queries by cosine distance.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// Sentinel errors for caller programming mistakes.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the store's configured dimensionality.
	ErrDimensionMismatch = errors.New("vectorstore: embedding dimension mismatch")
	// ErrArityMismatch is returned when the number of documents and the
	// number of embeddings passed to Add differ.
	ErrArityMismatch = errors.New("vectorstore: documents and embeddings count mismatch")
	// ErrInvalidK is returned when a search requests a non-positive number
	// of results.
	ErrInvalidK = errors.New("vectorstore: k must be positive")
)

// undefinedTableCode is the PostgreSQL error code raised when the chunk
// table does not exist yet. Count treats it as an empty store so callers
// can probe before the first indexing run.
const undefinedTableCode = "42P01"

// Document is one stored chunk with its provenance metadata.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Result pairs a retrieved document with its cosine similarity to the query
// vector, in [-1, 1] with 1 meaning identical direction.
type Result struct {
	Document
	Similarity float64
}

// Querier is the database surface the store needs. *pgxpool.Pool satisfies
// it in production; tests supply a mock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store reads and writes profile chunks. It is safe for concurrent use as
// long as the underlying Querier is.
type Store struct {
	db         Querier
	dimensions int
	logger     log.Logger
}

// New creates a Store expecting vectors of the given dimensionality.
func New(db Querier, dimensions int, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, dimensions: dimensions, logger: logger}
}

const upsertChunkSQL = `
INSERT INTO profile_chunks (id, content, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// Add upserts documents with their embeddings in a single batched round
// trip. docs[i] pairs with embeddings[i]; a length mismatch or a wrongly
// sized vector rejects the whole call before any write.
func (s *Store) Add(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("%w: %d documents, %d embeddings", ErrArityMismatch, len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}
	for i, emb := range embeddings {
		if len(emb) != s.dimensions {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				ErrDimensionMismatch, i, len(emb), s.dimensions)
		}
	}

	batch := &pgx.Batch{}
	for i, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", doc.ID, err)
		}
		vec := pgvector.NewVector(embeddings[i])
		batch.Queue(upsertChunkSQL, doc.ID, doc.Content, vec, metadata)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for i := range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert chunk %q: %w", docs[i].ID, err)
		}
	}

	s.logger.Debug("stored chunks", "count", len(docs))
	return nil
}

const searchChunksSQL = `
SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
FROM profile_chunks
ORDER BY embedding <=> $1
LIMIT $2`

// Search returns up to k documents nearest to the query embedding, most
// similar first. An empty store returns an empty slice, not an error.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx, searchChunksSQL, vec, k)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			// Same as Count: a store that has never been indexed is
			// empty, not broken.
			return nil, nil
		}
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var (
			res      Result
			metadata []byte
		)
		if err := rows.Scan(&res.ID, &res.Content, &metadata, &res.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &res.Metadata); err != nil {
				s.logger.Warn("unparsable chunk metadata", "chunk_id", res.ID, "error", err)
				res.Metadata = map[string]string{}
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		// pgx can surface execution errors here instead of at Query.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return nil, nil
		}
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return results, nil
}

// Count returns the number of stored chunks. A missing table counts as
// zero, matching the behavior of a store that has never been indexed.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, "SELECT count(*) FROM profile_chunks").Scan(&count)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return 0, nil
		}
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// DeleteAll removes every stored chunk and returns how many were removed.
// Used by forced re-indexing.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM profile_chunks")
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	deleted := int(tag.RowsAffected())
	s.logger.Debug("cleared chunk table", "deleted", deleted)
	return deleted, nil
}

// Dimensions returns the vector size this store accepts.
func (s *Store) Dimensions() int {
	return s.dimensions
}
