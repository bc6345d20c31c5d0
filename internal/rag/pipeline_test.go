package rag

import (
	"context"
	"path/filepath"
	"testing"

	"multimodal-rag/internal/chunker"
	"multimodal-rag/internal/ingest"
	"multimodal-rag/internal/knowledge"
	"multimodal-rag/internal/models"
	"multimodal-rag/internal/summarizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hashEmbedder struct{}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r%31) + 1
	}
	return vec, nil
}

// Exercises the full path the boundary operations take: ingest a document
// through the real store, then answer a question against it with verified
// citations.
func TestPipeline_IngestThenAnswer(t *testing.T) {
	ctx := context.Background()

	store := knowledge.NewStore(filepath.Join(t.TempDir(), "storage"), "test_collection", true, hashEmbedder{})
	require.NoError(t, store.Open())
	defer store.Close()

	gen := &fakeGenerator{
		textResponse:   "The document describes the quarterly planning process.",
		visionResponse: "a diagram",
		jsonResponse:   `{"cited_sources": ["SOURCE_1"]}`,
	}

	pipeline := ingest.NewPipeline(store, summarizer.NewSummarizer(gen), chunker.NewSplitter(1000, 200))
	outcome, err := pipeline.Ingest(ctx, "notes.txt", []models.ContentUnit{
		{Type: models.UnitText, Text: "The quarterly planning process starts in March and ends in April.", Page: 1, Source: "notes.txt"},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusAdded, outcome.Status)
	require.Equal(t, 1, outcome.ChunksAdded)

	o := NewOrchestrator(NewRetriever(store, 10), NewSynthesizer(gen), NewVerifier(gen), summarizer.NewSummarizer(gen))

	answer, err := o.Answer(ctx, "What is this document about?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Content)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "notes.txt", answer.Sources[0].Source)
	assert.Equal(t, 1, answer.Sources[0].Page)
	assert.Equal(t, models.ChunkText, answer.Sources[0].Type)

	// repeat upload is a no-op
	again, err := pipeline.Ingest(ctx, "notes.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAlreadyExists, again.Status)

	sources, err := store.ListSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, sources)
}
