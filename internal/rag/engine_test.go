package rag

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/vectorstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fakeDims = 8

type fakeEmbedder struct {
	err   error
	calls []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, fakeDims), nil
}

func (f *fakeEmbedder) Dimensions() int { return fakeDims }

type fakeVectorStore struct {
	results   []vectorstore.Result
	searchErr error
	searchK   int
	count     int
	countErr  error
	added     []vectorstore.Document
	addErr    error
	deleted   int
}

func (f *fakeVectorStore) Add(_ context.Context, docs []vectorstore.Document, _ [][]float32) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, docs...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, k int) ([]vectorstore.Result, error) {
	f.searchK = k
	return f.results, f.searchErr
}

func (f *fakeVectorStore) Count(context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeVectorStore) DeleteAll(context.Context) (int, error) {
	f.deleted = f.count
	f.count = 0
	return f.deleted, nil
}

type fakeGenerator struct {
	tokens []string
	err    error // yielded after tokens when set
	prompt string
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string) iter.Seq2[string, error] {
	f.prompt = prompt
	return func(yield func(string, error) bool) {
		for _, tok := range f.tokens {
			if !yield(tok, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

type fakeHistory struct {
	err       error
	sessionID string
	question  string
	answer    string
	calls     int
}

func (f *fakeHistory) SaveExchange(_ context.Context, sessionID, _, question, answer string) error {
	f.calls++
	f.sessionID = sessionID
	f.question = question
	f.answer = answer
	return f.err
}

func storedResult(id, content string) vectorstore.Result {
	return vectorstore.Result{
		Document:   vectorstore.Document{ID: id, Content: content},
		Similarity: 0.8,
	}
}

func collect(seq iter.Seq[Event]) []Event {
	var events []Event
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

func TestAnswerStreamsTokensThenDone(t *testing.T) {
	store := &fakeVectorStore{results: []vectorstore.Result{
		storedResult("chunk_0", "Rushikesh studies computer engineering."),
		storedResult("chunk_1", "He built a RAG-backed portfolio chat."),
	}}
	gen := &fakeGenerator{tokens: []string{"He ", "is ", "a student."}}
	hist := &fakeHistory{}
	engine := NewEngine(&fakeEmbedder{}, store, gen, hist, nil)

	q := Question{SessionID: "session-1", Text: "Who is Rushikesh?", ClientIP: "203.0.113.9"}
	events := collect(engine.Answer(context.Background(), q))

	require.Len(t, events, 4)
	assert.Equal(t, Event{Type: EventToken, Content: "He "}, events[0])
	assert.Equal(t, Event{Type: EventToken, Content: "is "}, events[1])
	assert.Equal(t, Event{Type: EventToken, Content: "a student."}, events[2])
	assert.Equal(t, Event{Type: EventDone}, events[3])

	assert.Equal(t, 3, store.searchK)
	assert.Contains(t, gen.prompt, "Who is Rushikesh?")
	assert.Contains(t, gen.prompt, "[1] Rushikesh studies computer engineering.")
	assert.Contains(t, gen.prompt, "[2] He built a RAG-backed portfolio chat.")

	assert.Equal(t, 1, hist.calls)
	assert.Equal(t, "Who is Rushikesh?", hist.question)
	assert.Equal(t, "He is a student.", hist.answer)
}

func TestAnswerEmptyIndexStillAnswers(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"I have no information about that."}}
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorStore{}, gen, &fakeHistory{}, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	require.NotEmpty(t, events)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
	assert.Contains(t, gen.prompt, "Question: hi?")
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("ollama unreachable")}
	hist := &fakeHistory{}
	engine := NewEngine(embedder, &fakeVectorStore{}, &fakeGenerator{}, hist, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.NotEmpty(t, events[0].Content)
	assert.NotContains(t, strings.ToLower(events[0].Content), "ollama",
		"internal details must not leak to clients")
	assert.Zero(t, hist.calls)
}

func TestAnswerSearchFailure(t *testing.T) {
	store := &fakeVectorStore{searchErr: errors.New("connection refused")}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeGenerator{}, &fakeHistory{}, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestAnswerGenerationFailureAfterTokens(t *testing.T) {
	store := &fakeVectorStore{results: []vectorstore.Result{storedResult("chunk_0", "context")}}
	gen := &fakeGenerator{tokens: []string{"partial "}, err: errors.New("stream interrupted")}
	hist := &fakeHistory{}
	engine := NewEngine(&fakeEmbedder{}, store, gen, hist, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	require.Len(t, events, 2)
	assert.Equal(t, EventToken, events[0].Type)
	assert.Equal(t, EventError, events[1].Type)
	assert.Zero(t, hist.calls, "failed answers are not persisted")
}

func TestAnswerPersistenceFailureStillDone(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"answer"}}
	hist := &fakeHistory{err: errors.New("database down")}
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorStore{}, gen, hist, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	require.Len(t, events, 2)
	assert.Equal(t, EventToken, events[0].Type)
	assert.Equal(t, EventDone, events[1].Type, "a delivered answer stays delivered")
}

func TestAnswerContextCanceledSkipsPersistence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{tokens: []string{"first", "second"}}
	hist := &fakeHistory{}
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorStore{}, gen, hist, nil)

	var events []Event
	for ev := range engine.Answer(ctx, Question{SessionID: "s", Text: "hi?"}) {
		events = append(events, ev)
		cancel()
	}

	for _, ev := range events {
		assert.NotEqual(t, EventDone, ev.Type)
	}
	assert.Zero(t, hist.calls)
}

func TestAnswerNilHistory(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"answer"}}
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorStore{}, gen, nil, nil)

	events := collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))
	assert.Equal(t, EventDone, events[len(events)-1].Type)
}

func TestAnswerRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	gen := &fakeGenerator{tokens: []string{"answer"}}
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorStore{}, gen, nil, nil)
	collect(engine.Answer(context.Background(), Question{SessionID: "s", Text: "hi?"}))

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "rag.answer", spans[0].Name())
}

func TestReady(t *testing.T) {
	store := &fakeVectorStore{count: 0}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeGenerator{}, nil, nil)

	// An empty but reachable store is ready; only unreachable is not.
	assert.NoError(t, engine.Ready(context.Background()))
}

func TestReadyStoreUnreachable(t *testing.T) {
	store := &fakeVectorStore{countErr: errors.New("connection refused")}
	engine := NewEngine(&fakeEmbedder{}, store, &fakeGenerator{}, nil, nil)

	err := engine.Ready(context.Background())
	require.Error(t, err)

	// A later successful probe latches: the store is never probed again.
	store.countErr = nil
	require.NoError(t, engine.Ready(context.Background()))
	store.countErr = errors.New("connection refused")
	assert.NoError(t, engine.Ready(context.Background()))
}
