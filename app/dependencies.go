package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/docqa/backend/config"
	"github.com/upb/docqa/backend/handlers"
	"github.com/upb/docqa/backend/services/citation"
	"github.com/upb/docqa/backend/services/embedding"
	"github.com/upb/docqa/backend/services/generation"
	"github.com/upb/docqa/backend/services/query"
	"github.com/upb/docqa/backend/services/vectorstore"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Upstream clients
	Embedding   *embedding.Client
	VectorStore *vectorstore.Client
	Generation  *generation.Client

	// Pipeline
	CitationParser *citation.Parser
	QueryService   *query.Service

	// HTTP
	QueryHandler  *handlers.QueryHandler
	HealthHandler *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initClients(cfg)
	deps.initPipeline(cfg)
	deps.initHandlers()

	// Dependencies are probed, not required, at startup; the pipeline
	// degrades to 503 answers while an upstream is down.
	deps.logAvailability(ctx)

	logger.Info("all dependencies initialized")
	return deps, nil
}

// initClients initializes the three upstream HTTP clients
func (d *Dependencies) initClients(cfg *config.Config) {
	d.Embedding = embedding.NewClient(cfg.Embedding, d.Logger)
	d.VectorStore = vectorstore.NewClient(cfg.VectorStore, cfg.Embedding.Dimension, d.Logger)
	d.Generation = generation.NewClient(cfg.Generation, d.Logger)

	d.Logger.Info("upstream clients initialized",
		zap.String("embedding_url", cfg.Embedding.BaseURL),
		zap.String("vector_store_url", cfg.VectorStore.BaseURL),
		zap.String("generation_url", cfg.Generation.BaseURL))
}

// initPipeline wires the clients into the query pipeline
func (d *Dependencies) initPipeline(cfg *config.Config) {
	d.CitationParser = citation.NewParser(d.Logger)
	d.QueryService = query.NewService(
		d.Embedding,
		d.VectorStore,
		d.Generation,
		d.CitationParser,
		cfg.Pipeline,
		d.Logger,
	)

	d.Logger.Info("query pipeline initialized",
		zap.Float64("min_confidence", cfg.Pipeline.MinConfidence),
		zap.Int("default_max_results", cfg.Pipeline.DefaultMaxResults))
}

// initHandlers initializes the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.QueryHandler = handlers.NewQueryHandler(d.QueryService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(map[string]handlers.Availability{
		"embedding":    d.Embedding,
		"vector_store": d.VectorStore,
		"generation":   d.Generation,
	}, d.Logger)
}

func (d *Dependencies) logAvailability(ctx context.Context) {
	probes := map[string]interface{ IsAvailable(context.Context) bool }{
		"embedding":    d.Embedding,
		"vector_store": d.VectorStore,
		"generation":   d.Generation,
	}
	for name, probe := range probes {
		if !probe.IsAvailable(ctx) {
			d.Logger.Warn("dependency not reachable at startup", zap.String("dependency", name))
		}
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	// The upstream clients hold no persistent connections; only the
	// logger needs flushing.
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
