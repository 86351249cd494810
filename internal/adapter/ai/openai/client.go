// Package openai implements the embedding provider port against an
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"log/slog"

	"github.com/hiregrid/matchengine/internal/adapter/ai/tokencount"
	"github.com/hiregrid/matchengine/internal/adapter/observability"
	"github.com/hiregrid/matchengine/internal/config"
	"github.com/hiregrid/matchengine/internal/domain"
)

// Client implements domain.Embedder using the configured embeddings API.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs an embeddings client with sensible timeouts.
func New(cfg config.Config) *Client {
	timeout := 30 * time.Second
	if cfg.IsDev() {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: timeout},
		counter: tokencount.DefaultCounter,
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// Embed calls the embeddings endpoint and returns one vector per input text.
// Inputs longer than the configured token budget are truncated at a token
// boundary first. Provider failures are returned to the caller; nothing is
// cached or persisted here.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		// Do not log secrets; only indicate presence
		slog.Error("embeddings API key or model missing",
			slog.Bool("has_api_key", c.cfg.OpenAIAPIKey != ""),
			slog.String("model", c.cfg.EmbeddingsModel))
		return nil, fmt.Errorf("%w: OPENAI_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrInvalidArgument)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", domain.ErrInvalidArgument)
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = c.counter.Truncate(c.cfg.EmbeddingsModel, t, c.cfg.EmbedTokenBudget)
	}

	slog.Debug("calling embeddings API",
		slog.String("model", c.cfg.EmbeddingsModel),
		slog.Int("text_count", len(input)))
	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": input,
	}
	b, _ := json.Marshal(body)
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/embeddings", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.EmbedRequestDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.EmbedRequestsTotal.WithLabelValues("openai", "transport_error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusTooManyRequests {
			// Retryable: let backoff handle retries
			observability.EmbedRequestsTotal.WithLabelValues("openai", "rate_limited").Inc()
			slog.Warn("embedding provider rate limited",
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429: %w", domain.ErrUpstreamRateLimit)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable
			observability.EmbedRequestsTotal.WithLabelValues("openai", "client_error").Inc()
			slog.Warn("embedding provider 4xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.EmbeddingsModel),
				slog.String("body", readSnippet(resp.Body, 512)))
			return backoff.Permanent(fmt.Errorf("embed status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 5xx and others: retryable
			observability.EmbedRequestsTotal.WithLabelValues("openai", "server_error").Inc()
			slog.Error("embedding provider non-2xx",
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.EmbeddingsModel),
				slog.String("body", readSnippet(resp.Body, 512)))
			return fmt.Errorf("embed status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			observability.EmbedRequestsTotal.WithLabelValues("openai", "decode_error").Inc()
			slog.Error("embedding provider decode error",
				slog.String("model", c.cfg.EmbeddingsModel),
				slog.Any("error", err))
			return err
		}
		observability.EmbedRequestsTotal.WithLabelValues("openai", "ok").Inc()
		return nil
	}
	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		slog.Error("embeddings API failed after retries", slog.Any("error", err))
		return nil, fmt.Errorf("op=openai.embed: %w", err)
	}

	if len(out.Data) != len(texts) {
		slog.Error("embeddings API returned unexpected vector count",
			slog.Int("want", len(texts)), slog.Int("got", len(out.Data)))
		return nil, errors.New("embedding count mismatch")
	}

	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		v := make([]float32, len(out.Data[i].Embedding))
		for j := range out.Data[i].Embedding {
			v[j] = float32(out.Data[i].Embedding[j])
		}
		res[i] = v
	}
	return res, nil
}

// readSnippet reads up to n bytes from r for log context.
func readSnippet(r io.Reader, n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}
