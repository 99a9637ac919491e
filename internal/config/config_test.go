package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Pipeline.FetchBatch)
	assert.Equal(t, 256, cfg.Embedding.BatchSize)
	assert.Equal(t, 512, cfg.Qdrant.UpsertBatch)
	assert.Equal(t, "openalex", cfg.Qdrant.Collection)
	assert.Equal(t, "PG_PASSWORD", cfg.Postgres.PasswordEnv)
	assert.False(t, cfg.Qdrant.RecreateOnMismatch)
}

func TestLoad_FileOverridesAndDefaultsFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raglab.yaml")
	data := []byte(`
postgres:
  host: db.internal
  user: mike
embedding:
  endpoint: http://embed01:8000/embed
  batch_size: 64
qdrant:
  collection: papers_v2
  recreate_on_mismatch: true
pipeline:
  fetch_batch: 250
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "mike", cfg.Postgres.User)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "http://embed01:8000/embed", cfg.Embedding.Endpoint)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, "papers_v2", cfg.Qdrant.Collection)
	assert.True(t, cfg.Qdrant.RecreateOnMismatch)
	assert.Equal(t, 250, cfg.Pipeline.FetchBatch)
	// untouched sections still get defaults
	assert.Equal(t, 5, cfg.Pipeline.Retry.MaxAttempts)
	assert.Equal(t, 2048, cfg.Chunking.ChunkSize)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("postgres: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Qdrant.Collection = "roundtrip"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Qdrant.Collection)
	assert.Equal(t, cfg.Pipeline, loaded.Pipeline)
}
