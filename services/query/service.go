// Package query orchestrates the retrieval-augmented answer pipeline:
// embed, retrieve, confidence gate, generate, citation gate. Every path
// terminates in a well-formed Answer; refusing to answer is a correct
// outcome, not a failure.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/docqa/backend/config"
	"github.com/upb/docqa/backend/models"
	"github.com/upb/docqa/backend/services"
	"github.com/upb/docqa/backend/services/prompt"
	"github.com/upb/docqa/backend/services/vectorstore"
	"go.uber.org/zap"
)

// Refusal and failure messages carried on terminal Answers.
const (
	msgLowConfidence = "No sufficiently relevant documents were found to answer this question."
	msgNoCitations   = "The generated answer could not be grounded in the retrieved documents."
)

// Embedder turns question text into a retrieval vector.
type Embedder interface {
	Embed(ctx context.Context, text, requestID string) ([]float64, error)
}

// Retriever fetches candidate passages for a vector.
type Retriever interface {
	Query(ctx context.Context, vector []float64, maxResults int, sourceFilter, requestID string) ([]models.RetrievedChunk, error)
}

// Generator completes a grounding prompt into answer text.
type Generator interface {
	Complete(ctx context.Context, prompt, requestID string) (string, error)
}

// CitationExtractor parses and validates citation markers against
// retrieved passages.
type CitationExtractor interface {
	Extract(text string, chunks []models.RetrievedChunk, requestID string) ([]models.Citation, bool)
}

// Service drives one Query through the pipeline. Stateless beyond its
// injected clients and read-only configuration, so concurrent callers
// never interfere.
type Service struct {
	embedder  Embedder
	retriever Retriever
	generator Generator
	citations CitationExtractor
	config    config.PipelineConfig
	logger    *zap.Logger
}

// NewService creates a query service with injected dependencies
func NewService(
	embedder Embedder,
	retriever Retriever,
	generator Generator,
	citations CitationExtractor,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		citations: citations,
		config:    cfg,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one query.
//
// Validation failures return a nil Answer and a validation error before
// any network call. Dependency failures return a terminal Answer
// (answer=null, message naming the dependency) together with the
// unavailable error so the transport can map it to 503. Refusals and
// successes return (Answer, nil).
func (s *Service) Answer(ctx context.Context, query models.Query) (*models.Answer, error) {
	start := time.Now()

	requestID := query.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	question, err := prompt.ValidateQuestion(query.Question)
	if err != nil {
		return nil, err
	}
	if err := prompt.ValidateFilters(query.Filters); err != nil {
		return nil, err
	}

	maxResults := query.MaxResultsOrDefault(s.config.DefaultMaxResults)
	if maxResults > s.config.MaxResultsCap {
		maxResults = s.config.MaxResultsCap
	}

	s.logger.Info("starting query pipeline",
		zap.String("request_id", requestID),
		zap.Int("question_chars", len(question)),
		zap.Int("max_results", maxResults),
		zap.String("source_filter", query.SourceFilter()))

	// Step 1: Embed
	embedStart := time.Now()
	vector, err := s.embedder.Embed(ctx, question, requestID)
	if err != nil {
		return s.dependencyFailure(requestID, start, err)
	}
	s.logger.Debug("step 1: question embedded",
		zap.String("request_id", requestID),
		zap.Int64("embed_ms", time.Since(embedStart).Milliseconds()))

	// Step 2: Retrieve
	retrieveStart := time.Now()
	chunks, err := s.retriever.Query(ctx, vector, maxResults, query.SourceFilter(), requestID)
	if err != nil {
		if services.IsValidationError(err) {
			return nil, err
		}
		return s.dependencyFailure(requestID, start, err)
	}
	s.logger.Debug("step 2: passages retrieved",
		zap.String("request_id", requestID),
		zap.Int("chunks", len(chunks)),
		zap.Int64("retrieve_ms", time.Since(retrieveStart).Milliseconds()))

	// Step 3: Confidence gate. Below-threshold retrieval refuses without
	// ever invoking generation.
	confidence := vectorstore.MeanConfidence(chunks)
	if confidence < s.config.MinConfidence {
		s.logger.Info("step 3: confidence below threshold, refusing",
			zap.String("request_id", requestID),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", s.config.MinConfidence))
		return s.refusal(requestID, start, confidence, msgLowConfidence), nil
	}
	s.logger.Debug("step 3: confidence gate passed",
		zap.String("request_id", requestID),
		zap.Float64("confidence", confidence),
		zap.Float64("threshold", s.config.MinConfidence))

	// Step 4: Generate
	generateStart := time.Now()
	groundingPrompt := prompt.BuildGroundingPrompt(question, chunks)
	generated, err := s.generator.Complete(ctx, groundingPrompt, requestID)
	if err != nil {
		return s.dependencyFailure(requestID, start, err)
	}
	s.logger.Debug("step 4: answer generated",
		zap.String("request_id", requestID),
		zap.Int("response_chars", len(generated)),
		zap.Int64("generate_ms", time.Since(generateStart).Milliseconds()))

	// Step 5: Citation gate. Only citations resolved against a retrieved
	// passage survive; an answer with none is treated exactly like
	// finding nothing.
	parsed, allValid := s.citations.Extract(generated, chunks, requestID)
	resolved := make([]models.Citation, 0, len(parsed))
	for _, c := range parsed {
		if c.Resolved() {
			resolved = append(resolved, c)
		}
	}
	if len(resolved) == 0 {
		s.logger.Info("step 5: no resolvable citations, refusing",
			zap.String("request_id", requestID),
			zap.Int("markers", len(parsed)))
		return s.refusal(requestID, start, confidence, msgNoCitations), nil
	}
	if !allValid {
		s.logger.Warn("step 5: some citation markers did not resolve",
			zap.String("request_id", requestID),
			zap.Int("resolved", len(resolved)),
			zap.Int("total", len(parsed)))
	}
	if len(resolved) > maxResults {
		resolved = resolved[:maxResults]
	}

	// Step 6: Success
	elapsed := time.Since(start).Milliseconds()
	s.logger.Info("query pipeline completed",
		zap.String("request_id", requestID),
		zap.Float64("confidence", confidence),
		zap.Int("citations", len(resolved)),
		zap.Int64("processing_time_ms", elapsed))

	return &models.Answer{
		Answer:           &generated,
		Citations:        resolved,
		Confidence:       confidence,
		RequestID:        requestID,
		ProcessingTimeMs: elapsed,
	}, nil
}

// refusal builds a terminal refusal Answer.
func (s *Service) refusal(requestID string, start time.Time, confidence float64, message string) *models.Answer {
	return &models.Answer{
		Citations:        []models.Citation{},
		Confidence:       confidence,
		Message:          &message,
		RequestID:        requestID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// dependencyFailure builds the terminal service-unavailable Answer and
// passes the error through for transport-level status mapping.
func (s *Service) dependencyFailure(requestID string, start time.Time, err error) (*models.Answer, error) {
	message := "A required service is unavailable. Please try again later."
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message + ". Please try again later."
	}

	s.logger.Error("query pipeline aborted, dependency unavailable",
		zap.String("request_id", requestID),
		zap.Error(err))

	answer := &models.Answer{
		Citations:        []models.Citation{},
		Confidence:       0,
		Message:          &message,
		RequestID:        requestID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if domainErr != nil {
		return answer, domainErr
	}
	return answer, services.WrapUnavailable("dependency unavailable", err)
}
