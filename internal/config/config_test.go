package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalAI = `"ai": {
	"embedders": [{"provider": "gemini", "model": "gemini-embedding-001", "data": {"api_key": "k"}}],
	"generators": [{"provider": "gemini", "model": "gemini-2.0-flash", "data": {"api_key": "k"}}]
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{`+minimalAI+`}`))
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 16, cfg.Embedding.BatchSize)
	require.Equal(t, 3, cfg.Embedding.MaxRetriesOrDefault())
	require.Equal(t, 500, cfg.Chunking.ChunkSize)
	require.Equal(t, 100, cfg.Chunking.OverlapOrDefault())
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, "local", cfg.IndexStore.Type)
	require.Equal(t, "vectors", cfg.IndexStore.Dir)
	require.Equal(t, "uploads", cfg.FileStore.Dir)
	require.Equal(t, int64(50<<20), cfg.Upload.MaxBytes)
}

func TestLoadExplicitZeroOverlap(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{`+minimalAI+`, "chunking": {"chunk_size": 200, "overlap": 0}}`))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Chunking.OverlapOrDefault())
}

func TestLoadExplicitZeroRetries(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{`+minimalAI+`, "embedding": {"max_retries": 0}}`))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Embedding.MaxRetriesOrDefault())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no embedders", body: `{"ai": {"generators": [{"provider": "gemini", "model": "m"}]}}`},
		{name: "overlap too large", body: `{` + minimalAI + `, "chunking": {"chunk_size": 100, "overlap": 100}}`},
		{name: "bad index store", body: `{` + minimalAI + `, "index_store": {"type": "faiss"}}`},
		{name: "postgres without db", body: `{` + minimalAI + `, "index_store": {"type": "postgres"}}`},
		{name: "s3 without bucket", body: `{` + minimalAI + `, "file_store": {"type": "s3", "s3": {"endpoint": "x"}}}`},
		{name: "negative retries", body: `{` + minimalAI + `, "embedding": {"max_retries": -1}}`},
		{name: "db cache without db", body: `{` + minimalAI + `, "embedding": {"db_cache": true}}`},
		{name: "broken json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
