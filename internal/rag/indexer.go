package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/profile"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/vectorstore"
)

// ErrIndexLocked is returned when another process holds the indexing lock.
var ErrIndexLocked = errors.New("rag: another indexing run is in progress")

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorStore is the chunk storage surface the pipeline needs.
// *vectorstore.Store satisfies it.
type VectorStore interface {
	Add(ctx context.Context, docs []vectorstore.Document, embeddings [][]float32) error
	Search(ctx context.Context, embedding []float32, k int) ([]vectorstore.Result, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int, error)
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	Success             bool   `json:"success"`
	ChunksProcessed     int    `json:"chunks_processed"`
	EmbeddingsGenerated int    `json:"embeddings_generated"`
	DocumentsStored     int    `json:"documents_stored"`
	Message             string `json:"message"`
}

// Indexer loads the profile document, chunks it, embeds each chunk, and
// stores the result. Runs are serialized across processes with an advisory
// file lock, so concurrent deployments cannot index twice.
type Indexer struct {
	profilePath string
	lockPath    string
	embedder    Embedder
	store       VectorStore
	logger      log.Logger
}

// NewIndexer creates an Indexer reading the profile from profilePath and
// coordinating via the lock file at lockPath.
func NewIndexer(profilePath, lockPath string, embedder Embedder, store VectorStore, logger log.Logger) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{
		profilePath: profilePath,
		lockPath:    lockPath,
		embedder:    embedder,
		store:       store,
		logger:      logger,
	}
}

// Run executes one indexing pass. When the store already holds chunks and
// force is false the pass is skipped; force clears the store and rebuilds
// it. Chunks whose embedding fails are skipped individually so one bad
// chunk cannot abort the whole run.
func (ix *Indexer) Run(ctx context.Context, force bool) (result IndexResult, err error) {
	ctx, span := tracer.Start(ctx, "rag.index")
	span.SetAttributes(attribute.Bool("index.force", force))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "indexing failed")
		} else {
			span.SetAttributes(attribute.Int("index.documents", result.DocumentsStored))
		}
		span.End()
	}()

	lock := flock.New(ix.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return IndexResult{}, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return IndexResult{}, ErrIndexLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			ix.logger.Warn("release index lock", "error", err)
		}
	}()

	count, err := ix.store.Count(ctx)
	if err != nil {
		return IndexResult{}, fmt.Errorf("check existing index: %w", err)
	}
	if count > 0 && !force {
		ix.logger.Info("index already populated, skipping", "chunks", count)
		return IndexResult{
			Success: true,
			Message: fmt.Sprintf("index already contains %d chunks", count),
		}, nil
	}
	if count > 0 {
		deleted, err := ix.store.DeleteAll(ctx)
		if err != nil {
			return IndexResult{}, fmt.Errorf("clear index for rebuild: %w", err)
		}
		ix.logger.Info("cleared index for forced rebuild", "deleted", deleted)
	}

	doc, err := profile.Load(ix.profilePath)
	if err != nil {
		return IndexResult{}, fmt.Errorf("load profile: %w", err)
	}

	chunks := ChunkDocument(doc)
	if len(chunks) == 0 {
		return IndexResult{Success: true, Message: "profile produced no chunks"}, nil
	}

	source := filepath.Base(ix.profilePath)
	docs := make([]vectorstore.Document, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))

	for i, chunk := range chunks {
		id := "chunk_" + strconv.Itoa(i)

		vec, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return IndexResult{}, fmt.Errorf("embed chunk %s: %w", id, err)
			}
			ix.logger.Warn("skipping chunk, embedding failed", "chunk_id", id, "error", err)
			continue
		}

		docs = append(docs, vectorstore.Document{
			ID:      id,
			Content: chunk.Text,
			Metadata: map[string]string{
				"chunk_id":   id,
				"section":    string(chunk.Section),
				"subsection": chunk.Subsection,
				"char_count": strconv.Itoa(len(chunk.Text)),
				"source":     source,
			},
		})
		embeddings = append(embeddings, vec)
	}

	if len(docs) == 0 {
		return IndexResult{
			ChunksProcessed: len(chunks),
			Message:         "all chunk embeddings failed",
		}, errors.New("rag: no chunks could be embedded")
	}

	if err := ix.store.Add(ctx, docs, embeddings); err != nil {
		return IndexResult{}, fmt.Errorf("store chunks: %w", err)
	}

	result = IndexResult{
		Success:             true,
		ChunksProcessed:     len(chunks),
		EmbeddingsGenerated: len(embeddings),
		DocumentsStored:     len(docs),
		Message:             fmt.Sprintf("indexed %d of %d chunks", len(docs), len(chunks)),
	}
	ix.logger.Info("indexing complete",
		"chunks", result.ChunksProcessed,
		"stored", result.DocumentsStored)
	return result, nil
}
