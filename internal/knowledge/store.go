package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"multimodal-rag/internal/chromemdb"
	"multimodal-rag/internal/docstore"
	"multimodal-rag/internal/helper"
	"multimodal-rag/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// ErrManualInterventionRequired is returned by Reset when the persisted
// files could not be deleted, typically because another process holds them.
// The caller must restart the owning process and retry.
var ErrManualInterventionRequired = errors.New("knowledge base files could not be deleted; a restart of the owning process is required")

// ErrStoreClosed is returned when an operation runs against a store whose
// handles were released by a failed reset or by Close.
var ErrStoreClosed = errors.New("knowledge store is closed")

// Embedder converts text into the vector space shared by index and query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store binds the vector index to the content store under a single id
// space. Every id in the index has exactly one docstore entry written
// before the index entry; the read path tolerates a missing docstore entry
// by falling back to the embedded text.
type Store struct {
	mu           sync.RWMutex
	embedder     Embedder
	vectors      *chromemdb.VectorDBManager
	docs         *docstore.Store
	root         string
	removeAll    func(string) error
	addDocuments func(ctx context.Context, docs []chromem.Document) error
}

// NewStore builds a store rooted at root. inMemory keeps the vector index
// off disk, which tests use.
func NewStore(root, collection string, inMemory bool, embedder Embedder) *Store {
	s := &Store{
		embedder:  embedder,
		vectors:   chromemdb.NewVectorDBManager(filepath.Join(root, "chromem_db"), collection, inMemory),
		docs:      docstore.New(filepath.Join(root, "docstore")),
		root:      root,
		removeAll: os.RemoveAll,
	}
	s.addDocuments = s.vectors.AddDocuments
	return s
}

// Open attaches the store handles. Must be called before any other
// operation; the composition root owns the lifecycle.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open()
}

func (s *Store) open() error {
	if err := helper.CreateFolder(s.root); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}
	if err := s.docs.Open(); err != nil {
		return err
	}
	if err := s.vectors.Open(); err != nil {
		return err
	}
	return nil
}

// Close releases the store handles without deleting anything.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors.Release()
	return nil
}

// Exists reports whether at least one stored chunk carries the source.
func (s *Store) Exists(ctx context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.vectors.Opened() {
		return false, ErrStoreClosed
	}
	return s.docs.HasSource(source)
}

// Put commits a batch of chunks: embeddings are computed first, then the
// docstore entries are written, then the vector entries. A failure at any
// step aborts the remainder so a searchable id is never left without a
// recoverable payload. If the vector write fails or stores fewer entries
// than were given, the docstore entries just written are deleted again so
// the source stays absent and a retry is not short-circuited as already
// ingested.
func (s *Store) Put(ctx context.Context, chunks []models.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.vectors.Opened() {
		return ErrStoreClosed
	}

	docs := make([]chromem.Document, 0, len(chunks))
	entries := make(map[string]docstore.Record, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedder.EmbedQuery(ctx, chunk.EmbeddingText)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:      chunk.ID,
			Content: chunk.EmbeddingText,
			Metadata: map[string]string{
				"source": chunk.Source,
				"page":   strconv.Itoa(chunk.Page),
				"type":   string(chunk.Type),
			},
			Embedding: embedding,
		})
		entries[chunk.ID] = docstore.Record{
			Source:  chunk.Source,
			Page:    chunk.Page,
			Payload: chunk.Payload,
		}
	}

	if err := s.docs.Set(entries); err != nil {
		return err
	}

	// The vector index add silently skips the remaining documents when the
	// context is already canceled, so the count is checked rather than
	// trusting a nil error.
	before := s.vectors.Count()
	if err := s.addDocuments(ctx, docs); err != nil {
		s.unwind(entries)
		return err
	}
	if added := s.vectors.Count() - before; added != len(docs) {
		s.unwind(entries)
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("vector index stored %d of %d chunks", added, len(docs))
	}

	log.Info().Int("chunks", len(chunks)).Str("source", chunks[0].Source).Msg("Committed chunks to knowledge base")
	return nil
}

// unwind deletes docstore entries written by a Put whose vector write did
// not complete, so Exists keeps reporting the source as absent.
func (s *Store) unwind(entries map[string]docstore.Record) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	if err := s.docs.Delete(ids); err != nil {
		log.Warn().Err(err).Msg("Failed to remove docstore entries after vector write failure")
	}
}

// Search embeds the query text and returns up to k nearest chunks ordered
// by descending similarity, with payloads resolved from the docstore. An
// index entry whose payload is missing is kept with its embedded text only
// and logged at warn level.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.vectors.Opened() {
		return nil, ErrStoreClosed
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.vectors.Query(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk := models.StoredChunk{
			ID:            hit.ID,
			Source:        hit.Metadata["source"],
			Type:          models.ChunkType(hit.Metadata["type"]),
			EmbeddingText: hit.Content,
		}
		if page, err := strconv.Atoi(hit.Metadata["page"]); err == nil {
			chunk.Page = page
		}

		rec, ok, err := s.docs.Get(hit.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			chunk.Payload = rec.Payload
		} else {
			log.Warn().Str("id", hit.ID).Msg("Vector entry has no docstore payload, using embedded text")
		}
		results = append(results, models.SearchResult{Chunk: chunk, Similarity: hit.Similarity})
	}
	return results, nil
}

// ListSources returns the distinct source filenames, sorted.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.vectors.Opened() {
		return nil, ErrStoreClosed
	}
	return s.docs.Sources()
}

// Reset destroys all chunks from both stores. Handles are released before
// the file-level delete; if the delete fails the store stays closed and
// ErrManualInterventionRequired is returned so the caller can retry after
// the lock clears. On success the store reopens empty.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors.Release()
	if err := s.removeAll(s.root); err != nil {
		log.Error().Err(err).Str("root", s.root).Msg("Failed to delete knowledge base files")
		return fmt.Errorf("%w: %v", ErrManualInterventionRequired, err)
	}

	log.Info().Str("root", s.root).Msg("Knowledge base cleared")
	return s.open()
}
