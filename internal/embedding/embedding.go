// Package embedding turns text into fixed-size vectors via a local Ollama
// instance. The all-minilm model produces 384-dimensional vectors matching
// the column width of the chunk table.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors returned by the client.
var (
	// ErrInvalidInput is returned when the text to embed is empty or
	// whitespace-only.
	ErrInvalidInput = errors.New("embedding: input text is empty")
	// ErrModelUnavailable is returned when the Ollama instance cannot be
	// reached or does not respond healthily.
	ErrModelUnavailable = errors.New("embedding: model unavailable")
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultHost       = "http://localhost:11434"
	DefaultModel      = "all-minilm"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 384
)

// Config holds connection settings for the Ollama embedding client.
type Config struct {
	// Host is the Ollama base URL.
	Host string
	// Model is the embedding model name.
	Model string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Dimensions is the expected vector size. Responses with a different
	// size are rejected.
	Dimensions int
}

// Client generates embeddings against the Ollama HTTP API.
type Client struct {
	http       *http.Client
	host       string
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// New creates a Client and verifies the Ollama instance is reachable. An
// unreachable instance is a startup failure, not a per-request condition,
// so it is surfaced here.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	c := &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		host:       cfg.Host,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Embed generates a vector for text. Whitespace-only input is rejected with
// ErrInvalidInput instead of producing a meaningless vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return nil, ErrInvalidInput
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(msg))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embedResp.Embedding) != c.dimensions {
		return nil, fmt.Errorf("model %s returned %d dimensions, expected %d",
			c.model, len(embedResp.Embedding), c.dimensions)
	}

	vec := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the vector size every successful Embed call produces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// ModelName returns the configured model name.
func (c *Client) ModelName() string {
	return c.model
}

// Ping checks connectivity via the tags endpoint, which lists installed
// models without running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
