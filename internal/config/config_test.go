package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "data/faiss_index", cfg.Cache.IndexPath)
	assert.Equal(t, 30, cfg.Cache.TTLDays)
	assert.Equal(t, "models/embedding-001", cfg.Cache.EmbeddingModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, "https://api.openbrewerydb.org/v1/breweries", cfg.Brewery.BaseURL)
	assert.Equal(t, 50, cfg.Brewery.MaxResults)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, Default().Cache, cfg.Cache)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  index_path: /tmp/cache
  ttl_days: 7
llm:
  model: gemini-2.5-pro
redis:
  addr: redis.internal:6379
  enabled: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", cfg.Cache.IndexPath)
	assert.Equal(t, 7, cfg.Cache.TTLDays)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.True(t, cfg.Redis.Enabled)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, "models/embedding-001", cfg.Cache.EmbeddingModel)
	assert.Equal(t, Default().Brewery, cfg.Brewery)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [not a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}
