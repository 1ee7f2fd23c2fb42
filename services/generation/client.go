// Package generation provides the HTTP client for the text generation
// service. The pipeline sends one grounding prompt per query and receives
// plain generated text; temperature stays low so answers are
// near-deterministic.
package generation

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

// Client calls the generation service
type Client struct {
	config     config.GenerationConfig
	httpClient *http.Client
	policy     *retry.Policy
	logger     *zap.Logger
}

// NewClient creates a new generation service client
func NewClient(cfg config.GenerationConfig, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
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

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete performs a single-shot completion of prompt. An empty response
// string is a failure, not a valid empty answer.
func (c *Client) Complete(ctx context.Context, prompt, requestID string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	})
	if err != nil {
		return "", services.WrapInternal("failed to marshal generation request", err)
	}

	start := time.Now()
	var text string

	err = c.policy.Do(ctx, requestID, "generate", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(reqBody))
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("calling generation service: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &retry.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		var genResp generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
			return retry.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		if genResp.Response == "" {
			return retry.Permanent(fmt.Errorf("generation service returned empty text"))
		}

		text = genResp.Response
		return nil
	})
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeUnavailable, "generation service unavailable", err)
	}

	c.logger.Debug("completion generated",
		zap.String("request_id", requestID),
		zap.Int("response_chars", len(text)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return text, nil
}

// IsAvailable checks if the generation service is currently reachable
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
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
