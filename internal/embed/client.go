// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns document text into vectors via an HTTP embedding
// service, with rate limiting, bounded retry on transient failures, and
// response validation. Vectors that fail validation are never returned to
// callers as usable results.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/indicator-engine/internal/faults"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Default configuration values.
const (
	DefaultBaseURL       = "http://localhost:11434"
	DefaultModel         = "nomic-embed-text"
	DefaultTimeout       = 30 * time.Second
	DefaultBatchSize     = 16
	DefaultMinInterval   = 100 * time.Millisecond
	DefaultMaxBackoff    = 30 * time.Second
	DefaultMinDimensions = 64
	DefaultMaxChars      = 8000
)

// RetryBaseDelay is the starting backoff delay for transient failures.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// Client calls the embedding service. All calls are blocking with an
// explicit timeout; a monotonic-clock rate limiter enforces a minimum
// inter-call interval.
type Client struct {
	cfg     types.EmbeddingConfig
	client  *http.Client
	batch   *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient builds a Client, applying safe defaults for unset fields.
func NewClient(cfg types.EmbeddingConfig, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = cfg.Timeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.MinDimensions <= 0 {
		cfg.MinDimensions = DefaultMinDimensions
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		batch:   &http.Client{Timeout: cfg.BatchTimeout},
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		log:     log,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// EmbedOne embeds a single text and returns its validated vector.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.call(ctx, c.client, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one service call per configured batch size.
// A failure in any batch fails the whole call; use EmbedResilient when a
// single bad item must not void the batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.call(ctx, c.batch, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedResilient embeds texts batch-first, falling back to per-item calls
// for any batch that fails, so one bad item does not void the others. The
// returned slices are index-aligned with texts: vectors[i] is nil exactly
// where errs[i] is non-nil.
func (c *Client) EmbedResilient(ctx context.Context, texts []string) (vectors [][]float32, errs []error) {
	vectors = make([][]float32, len(texts))
	errs = make([]error, len(texts))

	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.call(ctx, c.batch, texts[start:end])
		if err == nil {
			copy(vectors[start:], batch)
			continue
		}

		c.log.Warn("batch embedding failed, falling back to per-item calls",
			zap.Int("start", start), zap.Int("size", end-start), zap.Error(err))

		for i := start; i < end; i++ {
			vectors[i], errs[i] = c.EmbedOne(ctx, texts[i])
		}
	}
	return vectors, errs
}

// Truncate caps text at the configured character budget before submission.
func (c *Client) Truncate(text string) string {
	r := []rune(text)
	if len(r) <= c.cfg.MaxChars {
		return text
	}
	return string(r[:c.cfg.MaxChars])
}

// embedRequest and embedResponse mirror the service wire format:
// POST /api/embed {"model": ..., "input": [...]} -> {"embeddings": [[...]]}.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// call submits one embedding request with rate limiting and bounded retry.
// 5xx and transport timeouts are retried with exponential backoff capped at
// MaxBackoff; 4xx and malformed response bodies fail immediately.
func (c *Client) call(ctx context.Context, client *http.Client, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = c.Truncate(t)
	}

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: input})
	if err != nil {
		return nil, faults.Permanent(err, "encoding embed request")
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := c.once(ctx, client, body, len(input))
		if err == nil {
			return vectors, nil
		}
		if !faults.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt >= c.cfg.MaxRetries {
			return nil, lastErr
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
		c.log.Debug("transient embedding failure, backing off",
			zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// once performs a single HTTP round trip and validates the response.
func (c *Client) once(ctx context.Context, client *http.Client, body []byte, count int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, faults.Permanent(err, "creating embed request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, faults.Transient(err, "embedding request timed out")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, faults.Transient(err, "embedding request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decoding.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, faults.Transient(nil, "embedding service returned HTTP %d", resp.StatusCode)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, faults.Permanent(nil, "embedding service returned HTTP %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, faults.Permanent(err, "malformed embedding response body")
	}
	if len(er.Embeddings) != count {
		return nil, faults.Permanent(nil, "embedding response carried %d vectors for %d inputs",
			len(er.Embeddings), count)
	}

	for i, v := range er.Embeddings {
		if err := c.validate(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return er.Embeddings, nil
}

// validate rejects empty or suspiciously short vectors rather than letting
// them reach the store.
func (c *Client) validate(v []float32) error {
	if len(v) == 0 {
		return faults.Embedding("service returned an empty vector")
	}
	if len(v) < c.cfg.MinDimensions {
		return faults.Embedding("vector has %d dimensions, expected at least %d",
			len(v), c.cfg.MinDimensions)
	}
	return nil
}
