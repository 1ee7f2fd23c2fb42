package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/docqa/backend/config"
	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
)

func testConfig(baseURL string) config.VectorStoreConfig {
	return config.VectorStoreConfig{
		BaseURL:        baseURL,
		Collection:     "documents",
		EmbeddingModel: "all-MiniLM-L6-v2",
		Timeout:        2 * time.Second,
		MaxRetries:     3,
		BackoffBase:    2.0,
	}
}

func newTestClient(cfg config.VectorStoreConfig, dimension int) *Client {
	client := NewClient(cfg, dimension, zap.NewNop())
	client.policy.WithSleep(func(time.Duration) {})
	return client
}

func TestQuery_DimensionMismatchRejectedBeforeNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 4)

	chunks, err := client.Query(context.Background(), []float64{0.1, 0.2}, 5, "", "req-1")

	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.True(t, services.IsValidationError(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls), "mismatched vectors must never reach the store")

	details := services.GetErrorDetails(err)
	assert.Equal(t, 4, details["expected"])
	assert.Equal(t, 2, details["got"])
}

func TestQuery_ParsesAndSortsResults(t *testing.T) {
	var gotReq queryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/documents/query", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// Store returns ascending distance = descending similarity, but
		// the client must not rely on that.
		_ = json.NewEncoder(w).Encode(queryResponse{
			IDs:       [][]string{{"c1", "c2", "c3"}},
			Documents: [][]string{{"first passage", "second passage", "third passage"}},
			Metadatas: [][]map[string]interface{}{{
				{"document_name": "guide.pdf", "chunk_index": float64(0), "page": float64(3), "section": "Setup", "embedding_model": "all-MiniLM-L6-v2"},
				{"document_name": "manual.pdf", "chunk_index": float64(7)},
				nil,
			}},
			Distances: [][]float64{{0.4, 0.1, 0.25}},
		})
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 3)

	chunks, err := client.Query(context.Background(), []float64{0.1, 0.2, 0.3}, 5, "", "req-1")

	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Descending by similarity = 1 - distance.
	assert.Equal(t, "c2", chunks[0].ChunkID)
	assert.InDelta(t, 0.9, chunks[0].SimilarityScore, 1e-9)
	assert.Equal(t, "c3", chunks[1].ChunkID)
	assert.InDelta(t, 0.75, chunks[1].SimilarityScore, 1e-9)
	assert.Equal(t, "c1", chunks[2].ChunkID)
	assert.InDelta(t, 0.6, chunks[2].SimilarityScore, 1e-9)

	// Full metadata.
	full := chunks[2]
	assert.Equal(t, "guide.pdf", full.Metadata.DocumentName)
	assert.Equal(t, 0, full.Metadata.ChunkIndex)
	require.NotNil(t, full.Metadata.Page)
	assert.Equal(t, 3, *full.Metadata.Page)
	require.NotNil(t, full.Metadata.Section)
	assert.Equal(t, "Setup", *full.Metadata.Section)

	// Partial metadata keeps what is present.
	partial := chunks[1]
	assert.Equal(t, "manual.pdf", partial.Metadata.DocumentName)
	assert.Nil(t, partial.Metadata.Page)
	assert.Nil(t, partial.Metadata.Section)

	// Missing metadata falls back to defaults instead of failing.
	missing := chunks[0]
	assert.Equal(t, "Unknown", missing.Metadata.DocumentName)
	assert.Equal(t, 0, missing.Metadata.ChunkIndex)

	// Request shape.
	require.Len(t, gotReq.QueryEmbeddings, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, gotReq.QueryEmbeddings[0])
	assert.Equal(t, 5, gotReq.NResults)
	assert.Nil(t, gotReq.Where)
}

func TestQuery_SourceFilterBecomesWhereClause(t *testing.T) {
	var gotReq queryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(queryResponse{})
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 2)

	chunks, err := client.Query(context.Background(), []float64{0.1, 0.2}, 3, "handbook.pdf", "req-1")

	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, map[string]interface{}{"document_name": "handbook.pdf"}, gotReq.Where)
}

func TestQuery_EmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(queryResponse{
			IDs:       [][]string{{}},
			Documents: [][]string{{}},
			Metadatas: [][]map[string]interface{}{{}},
			Distances: [][]float64{{}},
		})
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 2)

	chunks, err := client.Query(context.Background(), []float64{0.1, 0.2}, 3, "", "req-1")

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestQuery_ConnectionFailureExhaustsRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// Drop the connection so the client sees a transport error.
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Error(err)
			return
		}
		_ = conn.Close()
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 2)

	chunks, err := client.Query(context.Background(), []float64{0.1, 0.2}, 3, "", "req-1")

	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.True(t, services.IsUnavailableError(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "connection failures retry up to the attempt budget")
}

func TestQuery_ServerErrorExhaustsRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), 2)

	_, err := client.Query(context.Background(), []float64{0.1, 0.2}, 3, "", "req-1")

	require.Error(t, err)
	assert.True(t, services.IsUnavailableError(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestMeanConfidence(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected float64
	}{
		{"no chunks", nil, 0.0},
		{"single chunk", []float64{0.8}, 0.8},
		{"multiple chunks", []float64{0.9, 0.7, 0.5}, 0.7},
		{"weak matches dilute a strong one", []float64{0.95, 0.2, 0.2, 0.2}, 0.3875},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := make([]models.RetrievedChunk, len(tt.scores))
			for i, s := range tt.scores {
				chunks[i].SimilarityScore = s
			}
			assert.InDelta(t, tt.expected, MeanConfidence(chunks), 1e-9)
		})
	}
}
