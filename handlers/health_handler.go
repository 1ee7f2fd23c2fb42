package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/docqa/backend/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Availability reports whether a dependency is currently reachable.
type Availability interface {
	IsAvailable(ctx context.Context) bool
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	dependencies map[string]Availability
	logger       *zap.Logger
}

// NewHealthHandler creates a new HealthHandler probing the given
// dependencies on readiness checks
func NewHealthHandler(dependencies map[string]Availability, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		dependencies: dependencies,
		logger:       logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if the service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
// Readiness check - validates that the embedding, vector store and
// generation dependencies are reachable
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.dependencies))
	allHealthy := true

	for name, dep := range h.dependencies {
		if dep.IsAvailable(ctx) {
			checks[name] = "healthy"
		} else {
			h.logger.Warn("dependency health check failed", zap.String("dependency", name))
			checks[name] = "unhealthy"
			allHealthy = false
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	_ = utils.WriteJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
