// Package embedding turns text into fixed-dimension vectors through the
// Google Generative Language embedding API.
package embedding

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Common errors
var (
	ErrInvalidInput    = errors.New("invalid input for embedding")
	ErrAPIKeyNotSet    = errors.New("Google API key not set")
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// ModelType represents supported embedding models
type ModelType string

const (
	ModelEmbedding001     ModelType = "models/embedding-001"
	ModelTextEmbedding004 ModelType = "models/text-embedding-004"
)

// Config holds the configuration for the embedding service
type Config struct {
	APIKey       string
	Model        ModelType
	BaseURL      string
	MaxBatchSize int
	Timeout      int // in seconds
}

// LoadConfig loads configuration from environment variables, trying a few
// .env locations first so tests and the CLI pick up the same key.
func LoadConfig() (*Config, error) {
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return &Config{
		APIKey:       apiKey,
		Model:        ModelEmbedding001,
		MaxBatchSize: 32,
		Timeout:      30,
	}, nil
}

// Service defines the interface for embedding operations
type Service interface {
	// Embed generates an embedding for a single text input
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple text inputs
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
