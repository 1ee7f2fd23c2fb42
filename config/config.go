package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Embedding     EmbeddingConfig
	VectorStore   VectorStoreConfig
	Generation    GenerationConfig
	Pipeline      PipelineConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// EmbeddingConfig holds embedding service client configuration
type EmbeddingConfig struct {
	BaseURL     string
	Dimension   int
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase float64
}

// VectorStoreConfig holds vector store client configuration
type VectorStoreConfig struct {
	BaseURL        string
	Collection     string
	EmbeddingModel string // Expected model name in chunk metadata; mismatches log a warning
	Timeout        time.Duration
	MaxRetries     int
	BackoffBase    float64
}

// GenerationConfig holds generation service client configuration
type GenerationConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase float64
}

// PipelineConfig holds query pipeline policy configuration
type PipelineConfig struct {
	// MinConfidence is the inclusive confidence-gate threshold; retrieval
	// confidence below it refuses without invoking generation.
	MinConfidence     float64
	DefaultMaxResults int
	MaxResultsCap     int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Embedding: EmbeddingConfig{
			BaseURL:     getEnv("EMBEDDING_BASE_URL", "http://localhost:8001"),
			Dimension:   getEnvAsInt("EMBEDDING_DIMENSION", 384),
			Timeout:     getEnvAsDuration("EMBEDDING_TIMEOUT", 10*time.Second),
			MaxRetries:  getEnvAsInt("EMBEDDING_MAX_RETRIES", 3),
			BackoffBase: getEnvAsFloat("EMBEDDING_BACKOFF_BASE", 2.0),
		},
		VectorStore: VectorStoreConfig{
			BaseURL:        getEnv("VECTOR_STORE_BASE_URL", "http://localhost:8000"),
			Collection:     getEnv("VECTOR_STORE_COLLECTION", "documents"),
			EmbeddingModel: getEnv("VECTOR_STORE_EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
			Timeout:        getEnvAsDuration("VECTOR_STORE_TIMEOUT", 10*time.Second),
			MaxRetries:     getEnvAsInt("VECTOR_STORE_MAX_RETRIES", 3),
			BackoffBase:    getEnvAsFloat("VECTOR_STORE_BACKOFF_BASE", 2.0),
		},
		Generation: GenerationConfig{
			BaseURL:     getEnv("GENERATION_BASE_URL", "http://localhost:11434"),
			Model:       getEnv("GENERATION_MODEL", "llama3.1:8b"),
			Temperature: getEnvAsFloat("GENERATION_TEMPERATURE", 0.1),
			MaxTokens:   getEnvAsInt("GENERATION_MAX_TOKENS", 1024),
			Timeout:     getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
			MaxRetries:  getEnvAsInt("GENERATION_MAX_RETRIES", 3),
			BackoffBase: getEnvAsFloat("GENERATION_BACKOFF_BASE", 2.0),
		},
		Pipeline: PipelineConfig{
			MinConfidence:     getEnvAsFloat("PIPELINE_MIN_CONFIDENCE", 0.5),
			DefaultMaxResults: getEnvAsInt("PIPELINE_DEFAULT_MAX_RESULTS", 5),
			MaxResultsCap:     getEnvAsInt("PIPELINE_MAX_RESULTS_CAP", 10),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding base URL is required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if c.VectorStore.BaseURL == "" {
		return fmt.Errorf("vector store base URL is required")
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector store collection is required")
	}
	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation base URL is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation model is required")
	}
	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence > 1 {
		return fmt.Errorf("pipeline min confidence must be within [0,1]")
	}
	if c.Pipeline.DefaultMaxResults < 1 || c.Pipeline.DefaultMaxResults > c.Pipeline.MaxResultsCap {
		return fmt.Errorf("pipeline default max results must be within [1,%d]", c.Pipeline.MaxResultsCap)
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
