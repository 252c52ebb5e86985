// Package llm streams answer text from the Gemini API.
package llm

import (
	"context"
	"fmt"
	"iter"
	"time"

	"google.golang.org/genai"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// Config holds generation settings.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
	// Model is the generation model name.
	Model string
	// Temperature controls sampling randomness.
	Temperature float32
	// MaxTokens bounds the generated answer length.
	MaxTokens int32
}

// Retry settings for transient failures before the first token. Once tokens
// have been sent downstream a retry would duplicate output, so mid-stream
// failures are terminal.
const (
	maxRetries   = 3
	initialDelay = time.Second
)

// attemptFunc runs one generation attempt, yielding raw text fragments
// until the stream ends or fails with a terminal error.
type attemptFunc func(ctx context.Context, prompt string) iter.Seq2[string, error]

// Client streams completions from Gemini. Safe for concurrent use.
type Client struct {
	genai      *genai.Client
	cfg        Config
	logger     log.Logger
	attempt    attemptFunc
	retryDelay time.Duration
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c := &Client{genai: gc, cfg: cfg, logger: logger, retryDelay: initialDelay}
	c.attempt = c.generate
	return c, nil
}

// Stream generates an answer for prompt, yielding text fragments as they
// arrive. Transient errors before the first fragment are retried with
// exponential backoff; any later error ends the sequence with that error.
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		delay := c.retryDelay
		var lastErr error
		start := time.Now()

		for attempt := 0; attempt <= maxRetries; attempt++ {
			emitted, done := c.streamOnce(ctx, prompt, yield, &lastErr)
			if done {
				if attempt > 0 {
					c.logger.Debug("generation succeeded after retry",
						"attempts", attempt+1, "elapsed", time.Since(start))
				}
				return
			}

			if emitted || !retryableError(lastErr) || attempt == maxRetries {
				yield("", fmt.Errorf("generate content: %w", lastErr))
				return
			}

			c.logger.Debug("retrying generation",
				"attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				yield("", fmt.Errorf("canceled during retry: %w", ctx.Err()))
				return
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
}

// streamOnce runs a single generation attempt. It reports whether any
// fragment reached the consumer and whether the stream finished (either
// completed cleanly or the consumer stopped iterating).
func (c *Client) streamOnce(ctx context.Context, prompt string, yield func(string, error) bool, lastErr *error) (emitted, done bool) {
	for text, err := range c.attempt(ctx, prompt) {
		if err != nil {
			*lastErr = err
			if emitted {
				yield("", fmt.Errorf("generation interrupted: %w", err))
				return emitted, true
			}
			return emitted, false
		}
		emitted = true
		if !yield(text, nil) {
			return emitted, true
		}
	}
	return emitted, true
}

// generate is the real per-attempt stream against the Gemini API.
func (c *Client) generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: c.cfg.MaxTokens,
	}

	return func(yield func(string, error) bool) {
		for resp, err := range c.genai.Models.GenerateContentStream(ctx, c.cfg.Model, genai.Text(prompt), config) {
			if err != nil {
				yield("", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// ModelName returns the configured generation model.
func (c *Client) ModelName() string {
	return c.cfg.Model
}
