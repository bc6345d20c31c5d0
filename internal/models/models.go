package models

// UnitType classifies a raw content unit produced by document extraction.
type UnitType string

const (
	UnitText         UnitType = "text"
	UnitImage        UnitType = "image"
	UnitImageFormula UnitType = "image_formula"
)

// ContentUnit is a single extracted piece of a document, before chunking
// and summarization. Text units carry Text, image units carry Image bytes.
type ContentUnit struct {
	Type   UnitType
	Text   string
	Image  []byte
	Page   int // 1-based
	Source string
}

// ChunkType is the stored flavor of a chunk. Formula images are stored as
// ChunkImage with a formula-flavored summary.
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkImage ChunkType = "image"
)

// Payload is the full recoverable content of a chunk, kept in the docstore
// under the same id as the vector entry.
type Payload struct {
	Type       ChunkType `json:"type"`
	Content    string    `json:"content,omitempty"`
	ContentB64 string    `json:"content_b64,omitempty"`
	Summary    string    `json:"summary,omitempty"`
}

// StoredChunk is the atomic indexed entity. EmbeddingText is what gets
// embedded and matched; Payload is what gets shown back to the user.
type StoredChunk struct {
	ID            string
	Source        string
	Page          int
	Type          ChunkType
	EmbeddingText string
	Payload       Payload
}

// DisplayText returns the text shown in prompts and citations: the chunk
// content for text, the generated summary for images. Falls back to the
// embedded text when the payload could not be resolved.
func (c StoredChunk) DisplayText() string {
	switch c.Payload.Type {
	case ChunkText:
		if c.Payload.Content != "" {
			return c.Payload.Content
		}
	case ChunkImage:
		if c.Payload.Summary != "" {
			return c.Payload.Summary
		}
	}
	return c.EmbeddingText
}

// SearchResult pairs a resolved chunk with its similarity score.
type SearchResult struct {
	Chunk      StoredChunk
	Similarity float32
}

// IngestStatus reports the outcome of a document ingestion.
type IngestStatus string

const (
	StatusAdded         IngestStatus = "added"
	StatusAlreadyExists IngestStatus = "already_exists"
)

// IngestOutcome is returned by the ingestion pipeline. ChunksAdded is zero
// when the source was already indexed.
type IngestOutcome struct {
	Status      IngestStatus
	ChunksAdded int
}

// CitedSource is a citation-verified source record projected back from the
// retrieved set.
type CitedSource struct {
	Source   string    `json:"source"`
	Page     int       `json:"page"`
	Summary  string    `json:"summary"`
	Type     ChunkType `json:"type"`
	ImageB64 string    `json:"image_b64,omitempty"`
}

// Answer is the result of the end-to-end question answering operation.
type Answer struct {
	Content string        `json:"answer"`
	Sources []CitedSource `json:"sources"`
}

// ChatTurn is a transient conversation entry owned by the calling UI.
// The core never persists these.
type ChatTurn struct {
	Role     string        `json:"role"`
	Content  string        `json:"content"`
	ImageB64 string        `json:"image_b64,omitempty"`
	Sources  []CitedSource `json:"sources,omitempty"`
}
