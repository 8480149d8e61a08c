package model

// SearchResult represents a passage retrieved by a query. Multiple chunks of
// the same document appear as distinct results; passage-level granularity is
// the contract.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Year       *int    `json:"year,omitempty"`
	Category   string  `json:"category,omitempty"`
	SourcePath string  `json:"source_path"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// DocumentMatch aggregates the passages of one document from a result set.
type DocumentMatch struct {
	DocumentID string          `json:"document_id"`
	Title      string          `json:"title"`
	BestScore  float64         `json:"best_score"`
	Passages   []*SearchResult `json:"passages"`
}

// IngestResult is the per-item outcome of a batch ingestion. Err is nil on
// success; a failed item never aborts the batch.
type IngestResult struct {
	Path       string `json:"path"`
	DocumentID string `json:"document_id,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	Err        error  `json:"-"`
}

// Stats reports collection-level counts.
type Stats struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}
