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
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Embedder.Type)
	assert.Equal(t, 32, cfg.Embedder.BatchSize)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 10, cfg.History.RetentionHours)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\nchunker:\n  chunk_size: 500\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, "local", cfg.Embedder.Type)
	assert.Equal(t, "extractive", cfg.Generator.Type)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &AppConfig{
		Server:      ServerConfig{Addr: ":7777"},
		Embedder:    EmbedderConfig{Type: "openai", BatchSize: 16, OpenAI: &OpenAIConfig{Model: "text-embedding-3-large"}},
		Generator:   GeneratorConfig{Type: "extractive", MaxSentences: 5},
		Chunker:     ChunkerConfig{ChunkSize: 800, Overlap: 100},
		VectorStore: VectorStoreConfig{Type: "sqlite", Path: "index.db"},
		History:     HistoryConfig{Type: "bolt", Path: "chat.db", RetentionHours: 2},
	}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", out.Server.Addr)
	assert.Equal(t, "openai", out.Embedder.Type)
	require.NotNil(t, out.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-large", out.Embedder.OpenAI.Model)
	// Defaults fill the fields the caller left zero.
	assert.Equal(t, "OPENAI_API_KEY", out.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "sqlite", out.VectorStore.Type)
	assert.Equal(t, "index.db", out.VectorStore.Path)
	assert.Equal(t, 2, out.History.RetentionHours)
}
