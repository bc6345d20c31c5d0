package rag

import (
	"context"
	"errors"
	"testing"

	"multimodal-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	textResponse   string
	textErr        error
	visionResponse string
	jsonResponse   string
	jsonErr        error

	textPrompts   []string
	visionPrompts []string
	jsonCalls     int
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.textPrompts = append(f.textPrompts, prompt)
	return f.textResponse, f.textErr
}

func (f *fakeGenerator) GenerateVision(_ context.Context, prompt string, _ []byte) (string, error) {
	f.visionPrompts = append(f.visionPrompts, prompt)
	return f.visionResponse, nil
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, _ string) (string, error) {
	f.jsonCalls++
	return f.jsonResponse, f.jsonErr
}

type fakeSearcher struct {
	results []models.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]models.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeAnalyzer struct {
	description string
}

func (f *fakeAnalyzer) DescribeQueryImage(context.Context, []byte) string {
	return f.description
}

func TestRetrieve_DeduplicatesByContent(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Chunk: models.StoredChunk{ID: "1", EmbeddingText: "same text"}, Similarity: 0.9},
		{Chunk: models.StoredChunk{ID: "2", EmbeddingText: "  same text "}, Similarity: 0.8},
		{Chunk: models.StoredChunk{ID: "3", EmbeddingText: "other text"}, Similarity: 0.7},
	}}
	r := NewRetriever(searcher, 10)

	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].Chunk.ID, "first occurrence wins")
	assert.Equal(t, "3", results[1].Chunk.ID)
}

func TestRetrieve_PropagatesStoreError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index unavailable")}
	r := NewRetriever(searcher, 10)
	_, err := r.Retrieve(context.Background(), "query")
	assert.Error(t, err)
}

func TestSynthesize_GroundedPromptContainsContextAndQuestion(t *testing.T) {
	gen := &fakeGenerator{textResponse: "grounded answer"}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), "What is X?", nil, contextOf("X is a thing.", "Y is unrelated."), "What is X?")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)

	require.Len(t, gen.textPrompts, 1)
	prompt := gen.textPrompts[0]
	assert.Contains(t, prompt, "X is a thing.")
	assert.Contains(t, prompt, "Y is unrelated.")
	assert.Contains(t, prompt, "What is X?")
	assert.Contains(t, prompt, "Based ONLY on")
}

func TestSynthesize_UngroundedFallback(t *testing.T) {
	gen := &fakeGenerator{textResponse: "direct answer"}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), "What is X?", nil, nil, "What is X?")
	require.NoError(t, err)
	assert.Equal(t, "direct answer", answer)
	assert.Equal(t, []string{"What is X?"}, gen.textPrompts, "raw question, no template")
}

func TestSynthesize_UngroundedFallbackWithImage(t *testing.T) {
	gen := &fakeGenerator{visionResponse: "image answer"}
	s := NewSynthesizer(gen)

	answer, err := s.Synthesize(context.Background(), "What is in this picture?", []byte{0x1}, nil, "What is in this picture?")
	require.NoError(t, err)
	assert.Equal(t, "image answer", answer)
	assert.Len(t, gen.visionPrompts, 1)
	assert.Empty(t, gen.textPrompts)
}

func TestSynthesize_GenerationFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{textErr: errors.New("generation service down")}
	s := NewSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), "q", nil, contextOf("ctx"), "q")
	assert.Error(t, err)
}

func newOrchestrator(searcher *fakeSearcher, gen *fakeGenerator, analyzer *fakeAnalyzer) *Orchestrator {
	return NewOrchestrator(NewRetriever(searcher, 10), NewSynthesizer(gen), NewVerifier(gen), analyzer)
}

func TestAnswer_EndToEnd(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Chunk: models.StoredChunk{
			ID:            "1",
			Source:        "notes.txt",
			Page:          1,
			Type:          models.ChunkText,
			EmbeddingText: "The project ships in March.",
			Payload:       models.Payload{Type: models.ChunkText, Content: "The project ships in March."},
		}, Similarity: 0.9},
	}}
	gen := &fakeGenerator{
		textResponse: "It ships in March.",
		jsonResponse: `{"cited_sources": ["SOURCE_1"]}`,
	}
	o := newOrchestrator(searcher, gen, &fakeAnalyzer{})

	answer, err := o.Answer(context.Background(), "What is this document about?", nil)
	require.NoError(t, err)
	assert.Equal(t, "It ships in March.", answer.Content)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "notes.txt", answer.Sources[0].Source)
	assert.Equal(t, 1, answer.Sources[0].Page)
	assert.Equal(t, models.ChunkText, answer.Sources[0].Type)
	assert.Equal(t, "The project ships in March.", answer.Sources[0].Summary)
	assert.Empty(t, answer.Sources[0].ImageB64)
}

func TestAnswer_EmptyStoreReturnsAnswerWithoutCitations(t *testing.T) {
	searcher := &fakeSearcher{}
	gen := &fakeGenerator{textResponse: "an ungrounded answer"}
	o := newOrchestrator(searcher, gen, &fakeAnalyzer{})

	answer, err := o.Answer(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.Equal(t, "an ungrounded answer", answer.Content)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, gen.jsonCalls, "no verification without retrieved context")
}

func TestAnswer_ImageAugmentsSearchQueryOnly(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Chunk: models.StoredChunk{
			ID: "1", Source: "a.pdf", Page: 2, Type: models.ChunkText,
			EmbeddingText: "chart data",
			Payload:       models.Payload{Type: models.ChunkText, Content: "chart data"},
		}},
	}}
	gen := &fakeGenerator{textResponse: "answer", jsonResponse: `{"cited_sources": []}`}
	o := newOrchestrator(searcher, gen, &fakeAnalyzer{description: "a bar chart of sales"})

	answer, err := o.Answer(context.Background(), "What does the chart show?", []byte{0x1})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	assert.Contains(t, searcher.queries[0], "What does the chart show?")
	assert.Contains(t, searcher.queries[0], "[Information from uploaded image]:")
	assert.Contains(t, searcher.queries[0], "a bar chart of sales")

	// the grounded prompt keeps the original question, not the augmented one
	require.Len(t, gen.textPrompts, 1)
	assert.Contains(t, gen.textPrompts[0], "What does the chart show?")
	assert.NotContains(t, gen.textPrompts[0], "[Information from uploaded image]:")

	assert.Empty(t, answer.Sources, "empty verified list yields no citations")
}

func TestAnswer_CitedImageCarriesPayloadBytes(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{Chunk: models.StoredChunk{
			ID: "1", Source: "a.pdf", Page: 4, Type: models.ChunkImage,
			EmbeddingText: "a pie chart",
			Payload: models.Payload{
				Type:       models.ChunkImage,
				ContentB64: "aW1hZ2VieXRlcw==",
				Summary:    "Summary of an image from page 4: a pie chart",
			},
		}},
	}}
	gen := &fakeGenerator{textResponse: "answer", jsonResponse: `{"cited_sources": ["SOURCE_1"]}`}
	o := newOrchestrator(searcher, gen, &fakeAnalyzer{})

	answer, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, models.ChunkImage, answer.Sources[0].Type)
	assert.Equal(t, "aW1hZ2VieXRlcw==", answer.Sources[0].ImageB64)
	assert.Equal(t, "Summary of an image from page 4: a pie chart", answer.Sources[0].Summary)
}

func TestAnswer_RetrievalErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store down")}
	gen := &fakeGenerator{}
	o := newOrchestrator(searcher, gen, &fakeAnalyzer{})

	_, err := o.Answer(context.Background(), "q", nil)
	assert.Error(t, err)
}
