// Package config loads the application configuration from an optional
// YAML file layered over defaults, with the API key coming from the
// environment (optionally via a .env file).
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrAPIKeyNotSet indicates GOOGLE_API_KEY is missing from the environment.
var ErrAPIKeyNotSet = errors.New("GOOGLE_API_KEY environment variable is required")

// Cache configures the semantic cache.
type Cache struct {
	IndexPath      string `yaml:"index_path"`
	TTLDays        int    `yaml:"ttl_days"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// LLM configures the chat model.
type LLM struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// Database configures the customers database.
type Database struct {
	Path string `yaml:"path"`
}

// Brewery configures the brewery directory client.
type Brewery struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxResults  int    `yaml:"max_results"`
}

// Redis configures the optional shared session store.
type Redis struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

// Config is the full application configuration.
type Config struct {
	APIKey   string   `yaml:"-"`
	Cache    Cache    `yaml:"cache"`
	LLM      LLM      `yaml:"llm"`
	Database Database `yaml:"database"`
	Brewery  Brewery  `yaml:"brewery"`
	Redis    Redis    `yaml:"redis"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Cache: Cache{
			IndexPath:      "data/faiss_index",
			TTLDays:        30,
			EmbeddingModel: "models/embedding-001",
		},
		LLM: LLM{
			Model:       "gemini-2.5-flash",
			Temperature: 0,
			TimeoutSecs: 60,
		},
		Database: Database{
			Path: "data/customers.db",
		},
		Brewery: Brewery{
			BaseURL:     "https://api.openbrewerydb.org/v1/breweries",
			TimeoutSecs: 10,
			MaxResults:  50,
		},
		Redis: Redis{
			Addr:    "localhost:6379",
			Enabled: false,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// given, then the API key from the environment. A missing file at the
// default path is fine; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is a developer convenience; the environment always wins.
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	if cfg.APIKey == "" {
		return Config{}, ErrAPIKeyNotSet
	}

	return cfg, nil
}
