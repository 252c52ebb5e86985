package rag

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// topK is how many chunks are retrieved as context per question.
const topK = 3

// tracer covers the answer and indexing pipelines. The global provider
// delegates, so spans reach whatever exporter observability.Setup installs.
var tracer = otel.Tracer("github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag")

// Generator streams completion text for a prompt. *llm.Client satisfies it.
type Generator interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// HistorySaver persists a completed exchange. *history.Store satisfies it.
type HistorySaver interface {
	SaveExchange(ctx context.Context, sessionID, ip, question, answer string) error
}

// Question is one incoming chat request.
type Question struct {
	SessionID string
	Text      string
	ClientIP  string
}

// Engine answers questions over the indexed profile: embed the question,
// retrieve the nearest chunks, prompt the generator, and stream the answer.
// Safe for concurrent use.
type Engine struct {
	embedder  Embedder
	store     VectorStore
	generator Generator
	history   HistorySaver
	logger    log.Logger

	// ready latches after the first successful store probe so serving
	// requests does not cost a query per call.
	ready atomic.Bool
}

// NewEngine creates an Engine. history may be nil to disable persistence.
func NewEngine(embedder Embedder, store VectorStore, generator Generator, history HistorySaver, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		history:   history,
		logger:    logger,
	}
}

// Ready reports whether the retrieval store is reachable. The first
// successful probe latches, so a reachable store is never probed again.
func (e *Engine) Ready(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	if _, err := e.store.Count(ctx); err != nil {
		return fmt.Errorf("retrieval store not ready: %w", err)
	}
	e.ready.Store(true)
	return nil
}

// Answer runs the retrieval pipeline for q and returns the event stream:
// zero or more token events, then exactly one done or error event. The
// exchange is persisted after a successful answer; persistence failure is
// logged and does not turn a finished answer into an error. Canceling ctx
// stops the stream and skips persistence.
func (e *Engine) Answer(ctx context.Context, q Question) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		ctx, span := tracer.Start(ctx, "rag.answer")
		defer span.End()
		span.SetAttributes(attribute.String("session.id", q.SessionID))

		embedding, err := e.embedder.Embed(ctx, q.Text)
		if err != nil {
			e.logger.Error("question embedding failed", "session_id", q.SessionID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "embedding failed")
			yield(Event{Type: EventError, Content: "Unable to process your question right now. Please try again."})
			return
		}

		results, err := e.store.Search(ctx, embedding, topK)
		if err != nil {
			e.logger.Error("context retrieval failed", "session_id", q.SessionID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "retrieval failed")
			yield(Event{Type: EventError, Content: "Unable to retrieve context right now. Please try again."})
			return
		}
		span.SetAttributes(attribute.Int("retrieval.chunks", len(results)))

		contextChunks := make([]string, len(results))
		for i, r := range results {
			contextChunks[i] = r.Content
			e.logger.Debug("retrieved chunk",
				"session_id", q.SessionID,
				"chunk_id", r.ID,
				"similarity", r.Similarity)
		}

		prompt := buildPrompt(q.Text, contextChunks)

		var answer []byte
		for token, err := range e.generator.Stream(ctx, prompt) {
			if err != nil {
				e.logger.Error("generation failed", "session_id", q.SessionID, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "generation failed")
				yield(Event{Type: EventError, Content: "Answer generation failed. Please try again."})
				return
			}
			answer = append(answer, token...)
			if !yield(Event{Type: EventToken, Content: token}) {
				return
			}
		}

		if ctx.Err() != nil {
			// Client went away mid-answer; nothing to persist.
			return
		}

		if e.history != nil {
			if err := e.history.SaveExchange(ctx, q.SessionID, q.ClientIP, q.Text, string(answer)); err != nil {
				e.logger.Warn("exchange persistence failed",
					"session_id", q.SessionID, "error", err)
				span.RecordError(err)
			}
		}

		span.SetAttributes(attribute.Int("answer.chars", len(answer)))
		yield(Event{Type: EventDone})
	}
}
