package model

import (
	"fmt"
	"time"
)

// Chunk represents a bounded window of a document's extracted text, the unit
// of embedding and retrieval. Chunk IDs are a deterministic function of
// (document ID, start offset), so re-chunking identical text always
// reproduces identical IDs and store writes stay idempotent.
type Chunk struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"document_id"`
	StartOffset int           `json:"start_offset"`
	Text        string        `json:"text"`
	Embedding   []float32     `json:"embedding,omitempty"`
	Metadata    ChunkMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
	// Result fields, populated by store queries.
	Similarity float64 `json:"similarity,omitempty"`
}

// ChunkID builds the deterministic chunk identifier for a document and
// window start offset.
func ChunkID(documentID string, startOffset int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, startOffset)
}

// ChunkMetadata is the denormalized copy of the parent document's metadata
// carried on every chunk record. Fields are fixed-shape rather than a loose
// map so filters cannot silently miss on a typoed key. It is kept in sync at
// write time, not via reference.
type ChunkMetadata struct {
	SourcePath string `json:"source_path"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Year       *int   `json:"year,omitempty"`
	Category   string `json:"category,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// Filter restricts query candidates to chunks whose metadata matches every
// set field exactly. A nil or zero filter matches everything.
type Filter struct {
	DocumentID *string
	SourcePath *string
	Title      *string
	Year       *int
	Category   *string
}

// Matches reports whether the chunk satisfies every set field (logical AND).
func (f *Filter) Matches(c *Chunk) bool {
	if f == nil {
		return true
	}
	if f.DocumentID != nil && c.DocumentID != *f.DocumentID {
		return false
	}
	if f.SourcePath != nil && c.Metadata.SourcePath != *f.SourcePath {
		return false
	}
	if f.Title != nil && c.Metadata.Title != *f.Title {
		return false
	}
	if f.Year != nil && (c.Metadata.Year == nil || *c.Metadata.Year != *f.Year) {
		return false
	}
	if f.Category != nil && c.Metadata.Category != *f.Category {
		return false
	}
	return true
}
