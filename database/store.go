package database

import (
	"github.com/siherrmann/paperdex/model"
)

// VectorStore is the persistent collection mapping chunk IDs to embeddings,
// text and metadata, with the document-level bookkeeping needed for dedup.
// One interface, two implementations: MemoryStore for ephemeral use and
// BadgerStore persisted under a collection directory. Writes follow a
// single-writer discipline; reads may proceed concurrently with reads.
type VectorStore interface {
	// Document bookkeeping
	InsertDocument(doc *model.Document) error
	Document(id string) (*model.Document, error)
	DocumentByContentHash(hash string) (*model.Document, error)
	ExistsContentHash(hash string) (bool, error)
	Documents() ([]*model.Document, error)
	// UpdateCategory writes the category onto the document and every one of
	// its chunks, keeping the denormalized chunk metadata in sync.
	UpdateCategory(documentID string, category string) error

	// Chunk records
	UpsertChunks(chunks []*model.Chunk) error
	MissingChunks(ids []string) ([]string, error)
	ChunksByDocument(documentID string) ([]*model.Chunk, error)

	// Query runs a metadata-filtered nearest-neighbor search and returns at
	// most TopK chunks ordered by descending similarity, ties broken by
	// chunk ID ascending. An empty store yields an empty result, not an
	// error.
	Query(embedding []float32, config *model.QueryConfig) ([]*model.Chunk, error)

	Count() (documents int, chunks int, err error)
	Dimension() int

	// Reset drops all documents and chunks from the collection.
	Reset() error
	Close() error
}

// Compile-time interface assertions
var (
	_ VectorStore = (*MemoryStore)(nil)
	_ VectorStore = (*BadgerStore)(nil)
)
