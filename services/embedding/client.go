// Package embedding provides the HTTP client for the embedding service.
// The service turns question text into a fixed-length vector from the
// same model family the ingestion pipeline used.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/docqa/backend/config"
	"github.com/upb/docqa/backend/services"
	"github.com/upb/docqa/backend/services/retry"
	"go.uber.org/zap"
)

// Client calls the embedding service
type Client struct {
	config     config.EmbeddingConfig
	httpClient *http.Client
	policy     *retry.Policy
	logger     *zap.Logger
}

// NewClient creates a new embedding service client
func NewClient(cfg config.EmbeddingConfig, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: retry.NewPolicy(cfg.MaxRetries, cfg.BackoffBase, retry.DefaultRetryable, logger),
		logger: logger,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed turns text into a vector of the configured dimension. A response
// with a missing embedding field or the wrong length is an error; the
// vector is never padded or truncated.
func (c *Client) Embed(ctx context.Context, text, requestID string) ([]float64, error) {
	reqBody, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, services.WrapInternal("failed to marshal embedding request", err)
	}

	start := time.Now()
	var vector []float64

	err = c.policy.Do(ctx, requestID, "embed", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/embed", bytes.NewReader(reqBody))
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("calling embedding service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &retry.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		var embedResp embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
			return retry.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		if len(embedResp.Embedding) == 0 {
			return retry.Permanent(fmt.Errorf("response missing embedding field"))
		}
		if len(embedResp.Embedding) != c.config.Dimension {
			return retry.Permanent(fmt.Errorf("embedding has %d dimensions, expected %d",
				len(embedResp.Embedding), c.config.Dimension))
		}

		vector = embedResp.Embedding
		return nil
	})
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUnavailable, "embedding service unavailable", err)
	}

	c.logger.Debug("question embedded",
		zap.String("request_id", requestID),
		zap.Int("dimension", len(vector)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return vector, nil
}

// Dimension returns the configured embedding vector length.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

// IsAvailable checks if the embedding service is currently reachable
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
