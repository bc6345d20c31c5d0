package db

import (
	"context"
	"database/sql"
	"fmt"

	"multimodal-rag/internal/config"
	"multimodal-rag/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// vectorSize must match the vector(768) column on StoredDocument.
const vectorSize = 768

// StoredDocument is the single-table Postgres shape of a stored chunk. The
// embedding column requires the pgvector extension.
type StoredDocument struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string         `bun:"id,pk"`
	Source        string         `bun:"source,notnull"`
	Page          int            `bun:"page,notnull"`
	Type          string         `bun:"type,notnull"`
	EmbeddingText string         `bun:"embedding_text,notnull"`
	Payload       models.Payload `bun:"payload,type:jsonb"`
	Embedding     []float32      `bun:"embedding,notnull,type:vector(768)"`
	Distance      float64        `bun:"distance,scanonly"`
}

// Embedder converts text into the vector space shared by index and query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store is the Postgres-backed knowledge store. It keeps payload and vector
// in one row, so the lockstep invariant holds per insert. Selected via the
// storage backend config; mainly useful when the knowledge base must be
// shared across hosts.
type Store struct {
	db       *bun.DB
	embedder Embedder
}

func NewStore(db *bun.DB, embedder Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Open creates the chunks table if it does not exist.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*StoredDocument)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize chunks table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Exists(ctx context.Context, source string) (bool, error) {
	count, err := s.db.NewSelect().
		Model((*StoredDocument)(nil)).
		Where("source = ?", source).
		Limit(1).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check source: %w", err)
	}
	return count > 0, nil
}

func (s *Store) Put(ctx context.Context, chunks []models.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]StoredDocument, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedder.EmbedQuery(ctx, chunk.EmbeddingText)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if len(embedding) != vectorSize {
			return fmt.Errorf("embedding for chunk %s has %d dimensions, expected %d", chunk.ID, len(embedding), vectorSize)
		}
		rows = append(rows, StoredDocument{
			ID:            chunk.ID,
			Source:        chunk.Source,
			Page:          chunk.Page,
			Type:          string(chunk.Type),
			EmbeddingText: chunk.EmbeddingText,
			Payload:       chunk.Payload,
			Embedding:     embedding,
		})
	}

	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows []StoredDocument
	err = s.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("embedding <-> ? AS distance", embedding).
		OrderExpr("embedding <-> ?", embedding).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.SearchResult{
			Chunk: models.StoredChunk{
				ID:            row.ID,
				Source:        row.Source,
				Page:          row.Page,
				Type:          models.ChunkType(row.Type),
				EmbeddingText: row.EmbeddingText,
				Payload:       row.Payload,
			},
			Similarity: float32(1.0 / (1.0 + row.Distance)),
		})
	}
	return results, nil
}

func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	var sources []string
	err := s.db.NewSelect().
		Model((*StoredDocument)(nil)).
		ColumnExpr("DISTINCT source").
		OrderExpr("source ASC").
		Scan(ctx, &sources)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// Reset drops and recreates the chunks table. Unlike the file-backed store
// there are no handles to release, so reset never needs manual intervention.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*StoredDocument)(nil)).IfExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop chunks table: %w", err)
	}
	return s.Open(ctx)
}
