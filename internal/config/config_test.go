package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "wikipedia.movies.json", cfg.Sources.Wiki)
	assert.Equal(t, "movies_metadata.csv", cfg.Sources.Catalog)
	assert.Equal(t, "ratings.csv", cfg.Sources.Ratings)
	assert.Equal(t, "/tmp/movie-etl", cfg.Sources.TempDir)
	assert.Equal(t, 5*time.Minute, cfg.Sources.Timeout)
	assert.Equal(t, 3, cfg.Sources.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Sources.RetryBackoff)
	assert.InDelta(t, 2.0, cfg.Sources.RateLimit, 0.0001)
	assert.InDelta(t, 0.9, cfg.Pipeline.SparsityThreshold, 0.0001)
	assert.Equal(t, 1_000_000, cfg.Pipeline.RatingsChunkSize)
	assert.Equal(t, "1996-01-01", cfg.Pipeline.MismergeWikiAfter)
	assert.Equal(t, "1965-01-01", cfg.Pipeline.MismergeCatalogBefore)
	assert.False(t, cfg.Pipeline.StrictCoercion)
	assert.Equal(t, "movies", cfg.Pipeline.MoviesTable)
	assert.Equal(t, "ratings", cfg.Pipeline.RatingsTable)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: film.db
sources:
  bundle: archive.zip
  catalog: bundle:movies_metadata.csv
pipeline:
  ratings_chunk_size: 500
  strict_coercion: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "film.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "archive.zip", cfg.Sources.Bundle)
	assert.Equal(t, "bundle:movies_metadata.csv", cfg.Sources.Catalog)
	assert.Equal(t, 500, cfg.Pipeline.RatingsChunkSize)
	assert.True(t, cfg.Pipeline.StrictCoercion)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "ratings.csv", cfg.Sources.Ratings)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("MOVIEETL_STORE_DRIVER", "postgres")
	t.Setenv("MOVIEETL_STORE_DATABASE_URL", "postgres://localhost/movie_data")
	t.Setenv("MOVIEETL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/movie_data", cfg.Store.DatabaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite"},
		Pipeline: PipelineConfig{
			SparsityThreshold:     0.9,
			RatingsChunkSize:      1_000_000,
			MismergeWikiAfter:     "1996-01-01",
			MismergeCatalogBefore: "1965-01-01",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid sqlite", func(c *Config) {}, ""},
		{"valid postgres", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/movie_data"
		}, ""},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url is required"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "unsupported store driver"},
		{"zero threshold", func(c *Config) { c.Pipeline.SparsityThreshold = 0 }, "sparsity_threshold"},
		{"threshold above one", func(c *Config) { c.Pipeline.SparsityThreshold = 1.5 }, "sparsity_threshold"},
		{"zero chunk size", func(c *Config) { c.Pipeline.RatingsChunkSize = 0 }, "ratings_chunk_size"},
		{"bad cutoff", func(c *Config) { c.Pipeline.MismergeWikiAfter = "01/01/1996" }, "mismerge_wiki_after"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMismergeCutoffs(t *testing.T) {
	wikiAfter, catalogBefore, err := validConfig().Pipeline.MismergeCutoffs()
	require.NoError(t, err)
	assert.Equal(t, time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), wikiAfter)
	assert.Equal(t, time.Date(1965, 1, 1, 0, 0, 0, 0, time.UTC), catalogBefore)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
