package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/docqa/backend/middleware"
	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
	"github.com/upb/docqa/backend/utils"
	"go.uber.org/zap"
)

// QueryRequest represents an inbound document question
type QueryRequest struct {
	Question  string        `json:"question" validate:"required"`
	Filters   *QueryFilters `json:"filters,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// QueryFilters narrows retrieval scope
type QueryFilters struct {
	Source     *string `json:"source,omitempty"`
	MaxResults *int    `json:"max_results,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// QueryService defines the interface for answering document questions
type QueryService interface {
	// Answer runs one query through the retrieval-augmented pipeline
	Answer(ctx context.Context, query models.Query) (*models.Answer, error)
}

// QueryHandler handles question-answering HTTP requests
type QueryHandler struct {
	service QueryService
	logger  *zap.Logger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(service QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		logger:  logger,
	}
}

// HandleQuery handles POST /api/v1/query
// Thin handler: decode, validate, delegate, serialize.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var queryReq QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&queryReq); err != nil {
		h.logger.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&queryReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", queryReq.RequestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	requestID := queryReq.RequestID
	if requestID == "" {
		requestID = middleware.GetRequestIDFromContext(ctx)
	}

	query := models.Query{
		Question:  queryReq.Question,
		RequestID: requestID,
	}
	if queryReq.Filters != nil {
		query.Filters = &models.QueryFilters{
			Source:     queryReq.Filters.Source,
			MaxResults: queryReq.Filters.MaxResults,
		}
	}

	result, err := h.service.Answer(ctx, query)
	if err != nil {
		// Dependency failures still carry a terminal Answer; serialize it
		// under 503 so callers always see the Answer shape.
		if services.IsUnavailableError(err) && result != nil {
			h.logger.Error("query failed, dependency unavailable",
				zap.String("request_id", result.RequestID),
				zap.Error(err))
			_ = utils.WriteServiceUnavailable(w, result, "")
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("query handled",
		zap.String("request_id", result.RequestID),
		zap.Bool("refusal", result.IsRefusal()),
		zap.Float64("confidence", result.Confidence),
		zap.Int("citations", len(result.Citations)),
		zap.Int64("processing_time_ms", result.ProcessingTimeMs))

	_ = utils.WriteOK(w, result)
}
