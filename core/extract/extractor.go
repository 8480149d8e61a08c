package extract

import "context"

// Extraction holds the text and basic metadata of one source document.
// Title, Author and Year stay empty/nil when nothing could be inferred;
// callers substitute "Unknown" at presentation time.
type Extraction struct {
	Text      string
	Title     string
	Author    string
	Year      *int
	PageCount int
}

// Extractor turns a source file into extracted text and basic metadata.
// Implementations fail with a model.ExtractionError on unreadable or
// text-less content. The interface keeps the title/year heuristics pluggable
// so a structured-extraction service can replace them without touching the
// pipeline.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
}
