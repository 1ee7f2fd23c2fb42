// Package vectorstore provides the HTTP client for the vector store and
// the retrieval-confidence aggregation used by the query pipeline's
// refusal gate.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/docqa/backend/config"
	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
	"github.com/upb/docqa/backend/services/retry"
	"go.uber.org/zap"
)

// Client queries a chroma-style vector store collection
type Client struct {
	config     config.VectorStoreConfig
	dimension  int
	httpClient *http.Client
	policy     *retry.Policy
	logger     *zap.Logger
}

// NewClient creates a new vector store client. dimension is the embedding
// length the store was populated with; query vectors of any other length
// are rejected before any network call.
func NewClient(cfg config.VectorStoreConfig, dimension int, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		config:    cfg,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: retry.NewPolicy(cfg.MaxRetries, cfg.BackoffBase, retry.DefaultRetryable, logger),
		logger: logger,
	}
}

type queryRequest struct {
	QueryEmbeddings [][]float64            `json:"query_embeddings"`
	NResults        int                    `json:"n_results"`
	Where           map[string]interface{} `json:"where,omitempty"`
	Include         []string               `json:"include"`
}

// queryResponse carries parallel arrays nested one level: index 0 holds
// the results for the single submitted query.
type queryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float64                `json:"distances"`
}

// Query retrieves the closest passages to vector, ordered descending by
// similarity (1 - distance). sourceFilter, when non-empty, becomes a
// store-side equality filter on document name.
func (c *Client) Query(ctx context.Context, vector []float64, maxResults int, sourceFilter, requestID string) ([]models.RetrievedChunk, error) {
	if len(vector) != c.dimension {
		// Fresh error per call; sentinels must stay immutable under
		// concurrent queries.
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"embedding dimension does not match configured dimension", nil).
			WithDetail("expected", c.dimension).
			WithDetail("got", len(vector))
	}

	body := queryRequest{
		QueryEmbeddings: [][]float64{vector},
		NResults:        maxResults,
		Include:         []string{"documents", "metadatas", "distances"},
	}
	if sourceFilter != "" {
		body.Where = map[string]interface{}{"document_name": sourceFilter}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal vector store query", err)
	}

	url := fmt.Sprintf("%s/api/v1/collections/%s/query", c.config.BaseURL, c.config.Collection)
	start := time.Now()
	var queryResp queryResponse

	err = c.policy.Do(ctx, requestID, "vector_query", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("calling vector store: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &retry.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
			return retry.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUnavailable, "vector store unavailable", err)
	}

	chunks := c.zipResults(&queryResp, requestID)
	models.SortChunksBySimilarity(chunks)

	c.logger.Debug("passages retrieved",
		zap.String("request_id", requestID),
		zap.Int("count", len(chunks)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return chunks, nil
}

// zipResults combines the store's parallel arrays into RetrievedChunks.
// Malformed metadata on a single chunk is defaulted and logged, never
// fatal to the query.
func (c *Client) zipResults(resp *queryResponse, requestID string) []models.RetrievedChunk {
	if len(resp.IDs) == 0 {
		return []models.RetrievedChunk{}
	}

	ids := resp.IDs[0]
	chunks := make([]models.RetrievedChunk, 0, len(ids))

	for i, id := range ids {
		chunk := models.RetrievedChunk{ChunkID: id}

		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			chunk.Content = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			chunk.SimilarityScore = 1 - resp.Distances[0][i]
		}

		var meta map[string]interface{}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			meta = resp.Metadatas[0][i]
		}
		chunk.Metadata = c.parseMetadata(meta, id, requestID)

		chunks = append(chunks, chunk)
	}

	return chunks
}

// parseMetadata extracts chunk metadata, defaulting the required fields
// and omitting absent optional ones.
func (c *Client) parseMetadata(meta map[string]interface{}, chunkID, requestID string) models.ChunkMetadata {
	parsed := models.ChunkMetadata{
		DocumentName: "Unknown",
		ChunkIndex:   0,
	}
	if meta == nil {
		c.logger.Warn("chunk missing metadata, using defaults",
			zap.String("request_id", requestID),
			zap.String("chunk_id", chunkID))
		return parsed
	}

	if name, ok := meta["document_name"].(string); ok && name != "" {
		parsed.DocumentName = name
	}
	if idx, ok := meta["chunk_index"].(float64); ok {
		parsed.ChunkIndex = int(idx)
	}
	if page, ok := meta["page"].(float64); ok {
		p := int(page)
		parsed.Page = &p
	}
	if section, ok := meta["section"].(string); ok && section != "" {
		parsed.Section = &section
	}
	if sourceType, ok := meta["source_type"].(string); ok && sourceType != "" {
		parsed.SourceType = &sourceType
	}
	if model, ok := meta["embedding_model"].(string); ok && model != "" {
		parsed.EmbeddingModel = &model
		if c.config.EmbeddingModel != "" && model != c.config.EmbeddingModel {
			c.logger.Warn("chunk embedded with a different model",
				zap.String("request_id", requestID),
				zap.String("chunk_id", chunkID),
				zap.String("chunk_model", model),
				zap.String("expected_model", c.config.EmbeddingModel))
		}
	}

	return parsed
}

// IsAvailable checks if the vector store is currently reachable
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/v1/heartbeat", nil)
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

// MeanConfidence aggregates retrieval confidence as the arithmetic mean
// of all similarity scores; an empty result is 0.0. Deliberately coarse:
// several decent matches beat one strong match diluted by weak ones,
// which keeps the refusal gate conservative.
func MeanConfidence(chunks []models.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, chunk := range chunks {
		sum += chunk.SimilarityScore
	}
	return sum / float64(len(chunks))
}
