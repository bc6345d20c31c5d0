package rag

import (
	"context"

	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// ImageAnalyzer describes a user-supplied query image so its content can be
// folded into the search string.
type ImageAnalyzer interface {
	DescribeQueryImage(ctx context.Context, image []byte) string
}

// Orchestrator composes retrieval, answer synthesis, and citation
// verification into the end-to-end question answering operation.
type Orchestrator struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	verifier    *Verifier
	analyzer    ImageAnalyzer
}

func NewOrchestrator(retriever *Retriever, synthesizer *Synthesizer, verifier *Verifier, analyzer ImageAnalyzer) *Orchestrator {
	return &Orchestrator{
		retriever:   retriever,
		synthesizer: synthesizer,
		verifier:    verifier,
		analyzer:    analyzer,
	}
}

// Answer runs the full pipeline for question, with an optional query image.
// The image description augments the search query only; the original
// question is what the answer model sees. Citations are empty when nothing
// was retrieved or nothing was verified.
func (o *Orchestrator) Answer(ctx context.Context, question string, image []byte) (models.Answer, error) {
	searchQuery := question
	if image != nil {
		if description := o.analyzer.DescribeQueryImage(ctx, image); description != "" {
			searchQuery = question + "\n\n[Information from uploaded image]:\n" + description
		}
	}

	results, err := o.retriever.Retrieve(ctx, searchQuery)
	if err != nil {
		return models.Answer{}, err
	}

	answer, err := o.synthesizer.Synthesize(ctx, question, image, results, searchQuery)
	if err != nil {
		return models.Answer{}, err
	}

	var sources []models.CitedSource
	if len(results) > 0 {
		for _, idx := range o.verifier.Verify(ctx, answer, results) {
			chunk := results[idx].Chunk
			cited := models.CitedSource{
				Source:  chunk.Source,
				Page:    chunk.Page,
				Summary: chunk.DisplayText(),
				Type:    chunk.Type,
			}
			if chunk.Type == models.ChunkImage {
				cited.ImageB64 = chunk.Payload.ContentB64
			}
			sources = append(sources, cited)
		}
	}

	log.Info().Int("cited_sources", len(sources)).Msg("Answer generated")
	return models.Answer{Content: answer, Sources: sources}, nil
}
