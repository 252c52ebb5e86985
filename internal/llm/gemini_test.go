package llm

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// fakeAttempts plays back one canned outcome per attempt: a non-nil err
// fails the attempt after any preceding tokens, otherwise the tokens stream
// and the attempt completes.
type fakeAttempts struct {
	outcomes []attemptOutcome
	calls    int
	prompts  []string
}

type attemptOutcome struct {
	tokens []string
	err    error
}

func (f *fakeAttempts) run(_ context.Context, prompt string) iter.Seq2[string, error] {
	outcome := f.outcomes[f.calls]
	f.calls++
	f.prompts = append(f.prompts, prompt)

	return func(yield func(string, error) bool) {
		for _, tok := range outcome.tokens {
			if !yield(tok, nil) {
				return
			}
		}
		if outcome.err != nil {
			yield("", outcome.err)
		}
	}
}

func newTestClient(fake *fakeAttempts) *Client {
	return &Client{
		cfg:        Config{Model: "gemini-2.5-flash"},
		logger:     log.NewNop(),
		attempt:    fake.run,
		retryDelay: time.Millisecond,
	}
}

func collectStream(seq iter.Seq2[string, error]) (tokens []string, err error) {
	for tok, streamErr := range seq {
		if streamErr != nil {
			return tokens, streamErr
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func TestStreamHappyPath(t *testing.T) {
	fake := &fakeAttempts{outcomes: []attemptOutcome{
		{tokens: []string{"Hello", " world", "."}},
	}}
	client := newTestClient(fake)

	tokens, err := collectStream(client.Stream(context.Background(), "say hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " world", "."}, tokens)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, []string{"say hi"}, fake.prompts)
}

func TestStreamRetriesThenSucceeds(t *testing.T) {
	fake := &fakeAttempts{outcomes: []attemptOutcome{
		{err: errors.New("rpc error: code 503 model overloaded")},
		{err: errors.New("rate limit exceeded")},
		{tokens: []string{"He ", "studies ", "at VIT."}},
	}}
	client := newTestClient(fake)

	tokens, err := collectStream(client.Stream(context.Background(), "where does he study?"))
	require.NoError(t, err, "two transient failures then success must produce a clean stream")
	assert.Equal(t, []string{"He ", "studies ", "at VIT."}, tokens)
	assert.Equal(t, 3, fake.calls)
}

func TestStreamNonRetryableFailsImmediately(t *testing.T) {
	fake := &fakeAttempts{outcomes: []attemptOutcome{
		{err: errors.New("API key not valid (401)")},
	}}
	client := newTestClient(fake)

	tokens, err := collectStream(client.Stream(context.Background(), "q"))
	require.Error(t, err)
	assert.Empty(t, tokens)
	assert.Equal(t, 1, fake.calls, "authentication failures must not be retried")
}

func TestStreamRetriesExhausted(t *testing.T) {
	transient := attemptOutcome{err: errors.New("503 service unavailable")}
	fake := &fakeAttempts{outcomes: []attemptOutcome{transient, transient, transient, transient}}
	client := newTestClient(fake)

	tokens, err := collectStream(client.Stream(context.Background(), "q"))
	require.Error(t, err)
	assert.Empty(t, tokens)
	assert.Equal(t, maxRetries+1, fake.calls)
}

func TestStreamMidStreamFailureNotRetried(t *testing.T) {
	fake := &fakeAttempts{outcomes: []attemptOutcome{
		{tokens: []string{"partial "}, err: errors.New("connection reset by peer")},
	}}
	client := newTestClient(fake)

	tokens, err := collectStream(client.Stream(context.Background(), "q"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation interrupted")
	assert.Equal(t, []string{"partial "}, tokens)
	assert.Equal(t, 1, fake.calls, "a retry after delivered tokens would duplicate output")
}

func TestStreamCanceledDuringRetryWait(t *testing.T) {
	fake := &fakeAttempts{outcomes: []attemptOutcome{
		{err: errors.New("503 service unavailable")},
	}}
	client := newTestClient(fake)
	client.retryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collectStream(client.Stream(ctx, "q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}
