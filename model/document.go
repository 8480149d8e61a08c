package model

import (
	"time"

	"github.com/google/uuid"
)

// UnknownField is the fallback value for metadata the extractor could not infer.
const UnknownField = "Unknown"

// Document represents an ingested source document. It is created at first
// successful ingestion and immutable afterwards, except for Category and
// Summary which later stages may back-fill. Re-ingesting the same content
// hash is a no-op that returns the existing ID.
type Document struct {
	ID          string    `json:"id"`
	RID         uuid.UUID `json:"rid"`
	SourcePath  string    `json:"source_path"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        *int      `json:"year,omitempty"`
	PageCount   int       `json:"page_count"`
	ContentHash string    `json:"content_hash"`
	Category    string    `json:"category,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayTitle returns the title, falling back to "Unknown" when the
// extractor could not infer one.
func (d *Document) DisplayTitle() string {
	if d.Title == "" {
		return UnknownField
	}
	return d.Title
}
