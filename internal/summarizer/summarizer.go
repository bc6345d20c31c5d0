package summarizer

import (
	"context"
	"fmt"

	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// VisionGenerator is the multimodal description capability the summarizer
// depends on.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, prompt string, image []byte) (string, error)
}

// Summarizer turns image content into a textual surrogate usable for
// embedding and citation display. Summarization is best-effort: a failed
// call degrades to a fixed fallback string and never aborts ingestion.
type Summarizer struct {
	llm VisionGenerator
}

func NewSummarizer(llm VisionGenerator) *Summarizer {
	return &Summarizer{llm: llm}
}

// SummarizeImage describes an image for retrieval. On service failure it
// returns the fixed fallback string.
func (s *Summarizer) SummarizeImage(ctx context.Context, image []byte) string {
	summary, err := s.llm.GenerateVision(ctx, models.ImageSummaryPrompt, image)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate image summary")
		return models.ImageSummaryFallback
	}
	return summary
}

// SummarizeFormula transcribes a formula image into a compact textual form.
// On service failure the error is embedded inline as the summary.
func (s *Summarizer) SummarizeFormula(ctx context.Context, image []byte) string {
	summary, err := s.llm.GenerateVision(ctx, models.FormulaSummaryPrompt, image)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate formula summary")
		return fmt.Sprintf("Error generating formula summary: %v", err)
	}
	return summary
}

// DescribeQueryImage describes a user-uploaded query image so its content
// can be folded into the search string. Returns "" on failure so the query
// proceeds on the question text alone.
func (s *Summarizer) DescribeQueryImage(ctx context.Context, image []byte) string {
	description, err := s.llm.GenerateVision(ctx, models.QueryImagePrompt, image)
	if err != nil {
		log.Error().Err(err).Msg("Failed to analyze query image")
		return ""
	}
	return description
}
