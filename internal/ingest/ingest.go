package ingest

import (
	"context"
	"encoding/base64"
	"fmt"

	"multimodal-rag/internal/helper"
	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Store is the subset of the knowledge store the pipeline writes to.
type Store interface {
	Exists(ctx context.Context, source string) (bool, error)
	Put(ctx context.Context, chunks []models.StoredChunk) error
}

// Summarizer produces textual surrogates for image content. Both methods
// are best-effort and return fallback text instead of failing.
type Summarizer interface {
	SummarizeImage(ctx context.Context, image []byte) string
	SummarizeFormula(ctx context.Context, image []byte) string
}

// Chunker splits long text into bounded overlapping sub-chunks.
type Chunker interface {
	Split(text string) []string
}

// Pipeline turns a document's extracted content units into stored chunks.
// Ingestion is idempotent per source: re-uploading an indexed filename is
// reported as AlreadyExists without any writes.
type Pipeline struct {
	store      Store
	summarizer Summarizer
	chunker    Chunker
}

func NewPipeline(store Store, summarizer Summarizer, chunker Chunker) *Pipeline {
	return &Pipeline{store: store, summarizer: summarizer, chunker: chunker}
}

// Ingest commits all content units for source as one batch. A failure of
// one unit's summarization degrades to its fallback string; a failure of
// the final commit aborts the whole document.
func (p *Pipeline) Ingest(ctx context.Context, source string, units []models.ContentUnit) (models.IngestOutcome, error) {
	exists, err := p.store.Exists(ctx, source)
	if err != nil {
		return models.IngestOutcome{}, fmt.Errorf("failed to check for existing document: %w", err)
	}
	if exists {
		log.Info().Str("source", source).Msg("Document already indexed, skipping")
		return models.IngestOutcome{Status: models.StatusAlreadyExists}, nil
	}

	var chunks []models.StoredChunk
	for _, unit := range units {
		page := unit.Page
		if page <= 0 {
			page = 1
		}

		switch unit.Type {
		case models.UnitText:
			for _, sub := range p.chunker.Split(unit.Text) {
				chunk, err := newChunk(source, page, models.ChunkText, sub, models.Payload{
					Type:    models.ChunkText,
					Content: sub,
				})
				if err != nil {
					return models.IngestOutcome{}, err
				}
				chunks = append(chunks, chunk)
			}
		case models.UnitImage:
			summary := p.summarizer.SummarizeImage(ctx, unit.Image)
			chunk, err := newChunk(source, page, models.ChunkImage, summary, models.Payload{
				Type:       models.ChunkImage,
				ContentB64: base64.StdEncoding.EncodeToString(unit.Image),
				Summary:    fmt.Sprintf("Summary of an image from page %d: %s", page, summary),
			})
			if err != nil {
				return models.IngestOutcome{}, err
			}
			chunks = append(chunks, chunk)
		case models.UnitImageFormula:
			summary := p.summarizer.SummarizeFormula(ctx, unit.Image)
			chunk, err := newChunk(source, page, models.ChunkImage, summary, models.Payload{
				Type:       models.ChunkImage,
				ContentB64: base64.StdEncoding.EncodeToString(unit.Image),
				Summary:    fmt.Sprintf("A formula from page %d is represented as: %s", page, summary),
			})
			if err != nil {
				return models.IngestOutcome{}, err
			}
			chunks = append(chunks, chunk)
		default:
			log.Warn().Str("type", string(unit.Type)).Str("source", source).Msg("Skipping content unit of unknown type")
		}
	}

	if len(chunks) == 0 {
		log.Info().Str("source", source).Msg("No content to add")
		return models.IngestOutcome{Status: models.StatusAdded}, nil
	}

	if err := p.store.Put(ctx, chunks); err != nil {
		return models.IngestOutcome{}, fmt.Errorf("failed to commit document %s: %w", source, err)
	}
	return models.IngestOutcome{Status: models.StatusAdded, ChunksAdded: len(chunks)}, nil
}

func newChunk(source string, page int, typ models.ChunkType, embeddingText string, payload models.Payload) (models.StoredChunk, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return models.StoredChunk{}, err
	}
	return models.StoredChunk{
		ID:            id,
		Source:        source,
		Page:          page,
		Type:          typ,
		EmbeddingText: embeddingText,
		Payload:       payload,
	}, nil
}
