package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// VectorDBManager encapsulates the chromem-go database operations. Handles
// are created by Open and dropped by Release so the owner can delete the
// on-disk files during a knowledge-base reset.
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	dbPath         string
	collectionName string
	inMemory       bool
}

const compress = false

// NewVectorDBManager builds a manager for the given path and collection.
// Call Open before use.
func NewVectorDBManager(dbPath, collectionName string, inMemory bool) *VectorDBManager {
	return &VectorDBManager{
		dbPath:         dbPath,
		collectionName: collectionName,
		inMemory:       inMemory,
	}
}

// Open initializes the database and collection. Safe to call again after
// Release to reattach to (or recreate) the persisted files.
func (m *VectorDBManager) Open() error {
	var db *chromem.DB
	var err error
	if m.inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(m.dbPath, compress)
		if err != nil {
			return fmt.Errorf("failed to create database: %v", err)
		}
	}

	c, err := db.GetOrCreateCollection(m.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}

	m.db = db
	m.collection = c
	return nil
}

// Opened reports whether handles are currently attached.
func (m *VectorDBManager) Opened() bool {
	return m.collection != nil
}

// AddDocuments stores pre-embedded documents in the collection.
func (m *VectorDBManager) AddDocuments(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return fmt.Errorf("collection is not open")
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query performs a similarity search with the given query embedding,
// returning at most k results ordered by descending similarity. k is
// clamped to the collection size.
func (m *VectorDBManager) Query(ctx context.Context, queryEmbedding []float32, k int) ([]chromem.Result, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is not open")
	}
	if queryEmbedding == nil {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	count := m.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}

// Count returns the number of stored documents.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// Release drops the database handles. The persisted files become safe to
// delete once no other manager references them.
func (m *VectorDBManager) Release() {
	m.db = nil
	m.collection = nil
}
