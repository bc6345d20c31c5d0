package rag

import (
	"context"
	"strings"

	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Searcher is the knowledge-store read path the engine depends on.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// Retriever fetches top-k candidates and drops duplicates by content so
// near-identical boilerplate cannot dominate the context window.
type Retriever struct {
	store Searcher
	topK  int
}

func NewRetriever(store Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 10
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve returns the unique-content results for query, order preserved,
// first occurrence winning.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.SearchResult, error) {
	results, err := r.store.Search(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	unique := results[:0]
	for _, res := range results {
		content := strings.TrimSpace(res.Chunk.EmbeddingText)
		if _, dup := seen[content]; dup {
			continue
		}
		seen[content] = struct{}{}
		unique = append(unique, res)
	}

	log.Debug().Int("retrieved", len(results)).Int("unique", len(unique)).Msg("Retrieved context chunks")
	return unique, nil
}
