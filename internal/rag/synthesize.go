package rag

import (
	"context"
	"fmt"
	"strings"

	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Generator is the text/multimodal generation service the query pipeline
// depends on. GenerateJSON runs in deterministic structured-output mode.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, image []byte) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Synthesizer produces the answer text. With retrieved context it constrains
// the model to that context only; with none it falls back to a direct,
// ungrounded call.
type Synthesizer struct {
	llm Generator
}

func NewSynthesizer(llm Generator) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize answers question from the retrieved context. searchQuery is the
// (possibly image-augmented) string that was used for retrieval; it is
// logged but the original question is what the model sees. A generation
// failure here propagates: there is no partial answer.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, image []byte, results []models.SearchResult, searchQuery string) (string, error) {
	if len(results) == 0 {
		log.Info().Str("search_query", truncate(searchQuery, 100)).Msg("No relevant documents found, answering without grounding")
		if image != nil {
			return s.llm.GenerateVision(ctx, question, image)
		}
		return s.llm.GenerateText(ctx, question)
	}

	parts := make([]string, 0, len(results))
	for _, res := range results {
		parts = append(parts, res.Chunk.DisplayText())
	}
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(parts, models.ContextSeparator), question)

	log.Debug().Int("context_chunks", len(results)).Str("search_query", truncate(searchQuery, 100)).Msg("Generating grounded answer")
	answer, err := s.llm.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return answer, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
