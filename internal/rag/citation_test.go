package rag

import (
	"context"
	"errors"
	"testing"

	"multimodal-rag/internal/models"

	"github.com/stretchr/testify/assert"
)

func contextOf(texts ...string) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(texts))
	for _, t := range texts {
		results = append(results, models.SearchResult{
			Chunk: models.StoredChunk{
				Type:          models.ChunkText,
				EmbeddingText: t,
				Payload:       models.Payload{Type: models.ChunkText, Content: t},
			},
		})
	}
	return results
}

func TestVerify_OrderPreserving(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: `{"cited_sources": ["SOURCE_3", "SOURCE_1"]}`}
	v := NewVerifier(gen)

	indices := v.Verify(context.Background(), "answer", contextOf("a", "b", "c"))
	assert.Equal(t, []int{0, 2}, indices)
}

func TestVerify_EmptyList(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: `{"cited_sources": []}`}
	v := NewVerifier(gen)

	assert.Empty(t, v.Verify(context.Background(), "answer", contextOf("a", "b")))
}

func TestVerify_FailClosed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "the answer is supported by SOURCE_1"},
		{"wrong shape", `{"cited_sources": "SOURCE_1"}`},
		{"bare list", `["SOURCE_1"]`},
		{"truncated", `{"cited_sources": ["SO`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{jsonResponse: tt.response}
			v := NewVerifier(gen)
			assert.Empty(t, v.Verify(context.Background(), "answer", contextOf("a", "b")))
		})
	}
}

func TestVerify_MissingKeyMeansNoCitations(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: `{"sources": ["SOURCE_1"]}`}
	v := NewVerifier(gen)
	assert.Empty(t, v.Verify(context.Background(), "answer", contextOf("a")))
}

func TestVerify_IgnoresUnknownLabels(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: `{"cited_sources": ["SOURCE_2", "SOURCE_99", "banana"]}`}
	v := NewVerifier(gen)

	indices := v.Verify(context.Background(), "answer", contextOf("a", "b"))
	assert.Equal(t, []int{1}, indices)
}

func TestVerify_StripsFencesAndThinkTags(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: "<think>let me check each source</think>```json\n{\"cited_sources\": [\"SOURCE_1\"]}\n```"}
	v := NewVerifier(gen)

	indices := v.Verify(context.Background(), "answer", contextOf("a"))
	assert.Equal(t, []int{0}, indices)
}

func TestVerify_ServiceFailure(t *testing.T) {
	gen := &fakeGenerator{jsonErr: errors.New("service down")}
	v := NewVerifier(gen)
	assert.Empty(t, v.Verify(context.Background(), "answer", contextOf("a")))
}

func TestVerify_NoContext(t *testing.T) {
	gen := &fakeGenerator{jsonResponse: `{"cited_sources": ["SOURCE_1"]}`}
	v := NewVerifier(gen)
	assert.Empty(t, v.Verify(context.Background(), "answer", nil))
	assert.Zero(t, gen.jsonCalls, "no verification call without context")
}
