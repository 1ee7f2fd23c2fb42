package handlers

import (
	"net/http"

	"github.com/upb/docqa/backend/services"
	"github.com/upb/docqa/backend/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		if writeErr := utils.WriteBadRequest(w, err.Error(), details); writeErr != nil {
			logger.Error("failed to write bad request response", zap.Error(writeErr))
		}

	case services.IsUnavailableError(err):
		if writeErr := utils.WriteServiceUnavailable(w, nil, err.Error()); writeErr != nil {
			logger.Error("failed to write service unavailable response", zap.Error(writeErr))
		}

	default:
		logger.Error("unhandled service error", zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, "An unexpected error occurred"); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}
	}
}

// HandleValidationError maps struct validation errors to a 400 response
// with per-field details
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	fields := utils.GetValidationFields(err)
	details := make(map[string]interface{}, len(fields))
	for field, msg := range fields {
		details[field] = msg
	}

	if writeErr := utils.WriteBadRequest(w, err.Error(), details); writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
