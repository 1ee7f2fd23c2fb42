package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDependency struct {
	available bool
}

func (f *fakeDependency) IsAvailable(ctx context.Context) bool {
	return f.available
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	handler := NewHealthHandler(map[string]Availability{
		"embedding":    &fakeDependency{available: true},
		"vector_store": &fakeDependency{available: true},
		"generation":   &fakeDependency{available: true},
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	handler.HandleReadiness(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["embedding"])
	assert.Equal(t, "healthy", resp.Checks["vector_store"])
	assert.Equal(t, "healthy", resp.Checks["generation"])
}

func TestHandleReadiness_OneUnhealthy(t *testing.T) {
	handler := NewHealthHandler(map[string]Availability{
		"embedding":    &fakeDependency{available: true},
		"vector_store": &fakeDependency{available: false},
		"generation":   &fakeDependency{available: true},
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	handler.HandleReadiness(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["vector_store"])
	assert.Equal(t, "healthy", resp.Checks["embedding"])
}
