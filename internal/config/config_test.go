package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  root: /data/kb
  backend: chromem
embedding:
  provider: ollama
  base_url: http://localhost:11434
  model: test-embed
rag:
  chunk_size: 500
  chunk_overlap: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/kb", cfg.Storage.Root)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)

	// unset values get defaults
	assert.Equal(t, defaultTopK, cfg.RAG.TopK)
	assert.Equal(t, "multimodal_rag", cfg.Storage.Collection)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyDefaults_SanitizesOverlap(t *testing.T) {
	cfg := &Config{RAG: RAGConfig{ChunkSize: 100, ChunkOverlap: 150}}
	cfg.ApplyDefaults()
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	assert.Equal(t, "chromem", cfg.Storage.Backend)
}
