package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteOK(rec, map[string]string{"status": "fine"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"fine"}`, rec.Body.String())
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteBadRequest(rec, "question is required", map[string]interface{}{"question": "missing"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error)
	assert.Equal(t, "question is required", resp.Message)
	assert.Equal(t, "missing", resp.Details["question"])
}

func TestWriteNotFound(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteNotFound(rec, "endpoint not found")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
	assert.Equal(t, "endpoint not found", resp.Message)
}

func TestWriteServiceUnavailable_BodyPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteServiceUnavailable(rec, map[string]interface{}{"answer": nil, "message": "try later"}, "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	// The body is serialized as-is, not wrapped in an error envelope.
	assert.JSONEq(t, `{"answer":null,"message":"try later"}`, rec.Body.String())
}

func TestWriteServiceUnavailable_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteServiceUnavailable(rec, nil, "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Error)
	assert.Equal(t, "Service temporarily unavailable", resp.Message)
}
