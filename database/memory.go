package database

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/paperdex/helper"
	"github.com/siherrmann/paperdex/model"
)

// MemoryStore is the ephemeral VectorStore implementation: a brute-force
// cosine index over in-process maps. It guarantees nothing across restarts
// and exists for tests, demos and throwaway collections.
type MemoryStore struct {
	mu        sync.RWMutex
	name      string
	dimension int
	documents map[string]*model.Document
	byHash    map[string]string
	chunks    map[string]*model.Chunk
	log       *slog.Logger
}

// NewMemoryStore creates an empty in-memory collection with a fixed
// embedding dimension. An empty name gets a generated one.
func NewMemoryStore(name string, dimension int, logger *slog.Logger) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("embedding dimension must be positive, got %v", dimension)}
	}
	if name == "" {
		name = "ephemeral_" + uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Initialized in-memory store", slog.String("collection", name), slog.Int("dimension", dimension))

	return &MemoryStore{
		name:      name,
		dimension: dimension,
		documents: map[string]*model.Document{},
		byHash:    map[string]string{},
		chunks:    map[string]*model.Chunk{},
		log:       logger,
	}, nil
}

// InsertDocument records a document. Re-inserting an existing ID returns
// ErrDuplicateDocument rather than silently overwriting.
func (s *MemoryStore) InsertDocument(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return helper.NewError("insert document", model.ErrDuplicateDocument)
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	copied := *doc
	s.documents[doc.ID] = &copied
	s.byHash[doc.ContentHash] = doc.ID
	return nil
}

// Document retrieves a document by ID.
func (s *MemoryStore) Document(id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, helper.NewError("select document", model.ErrNotFound)
	}
	copied := *doc
	return &copied, nil
}

// DocumentByContentHash retrieves a document by its dedup key.
func (s *MemoryStore) DocumentByContentHash(hash string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, helper.NewError("select document by hash", model.ErrNotFound)
	}
	copied := *s.documents[id]
	return &copied, nil
}

// ExistsContentHash supports document-level dedup before any chunking work.
func (s *MemoryStore) ExistsContentHash(hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

// Documents returns all documents in the collection.
func (s *MemoryStore) Documents() ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*model.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		copied := *doc
		docs = append(docs, &copied)
	}
	return docs, nil
}

// UpdateCategory writes a category onto a document and its chunk metadata.
func (s *MemoryStore) UpdateCategory(documentID string, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return helper.NewError("update category", model.ErrNotFound)
	}
	doc.Category = category
	doc.UpdatedAt = time.Now()
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			chunk.Metadata.Category = category
		}
	}
	return nil
}

// UpsertChunks writes chunk records, overwriting any existing record with
// the same chunk ID. The collection never holds two chunks with one ID.
func (s *MemoryStore) UpsertChunks(chunks []*model.Chunk) error {
	if err := validateChunks(chunks, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, chunk := range chunks {
		copied := *chunk
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = now
		}
		s.chunks[chunk.ID] = &copied
	}
	return nil
}

// MissingChunks returns the subset of ids with no stored record, so callers
// can embed only the chunks that are actually new.
func (s *MemoryStore) MissingChunks(ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, id := range ids {
		if _, ok := s.chunks[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ChunksByDocument returns all chunks owned by a document.
func (s *MemoryStore) ChunksByDocument(documentID string) ([]*model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []*model.Chunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			copied := *chunk
			chunks = append(chunks, &copied)
		}
	}
	return chunks, nil
}

// Query runs a filtered brute-force nearest-neighbor search. Candidates are
// copied under the read lock so ranking never touches structs a concurrent
// writer may mutate.
func (s *MemoryStore) Query(embedding []float32, config *model.QueryConfig) ([]*model.Chunk, error) {
	s.mu.RLock()
	candidates := make([]*model.Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		copied := *chunk
		candidates = append(candidates, &copied)
	}
	s.mu.RUnlock()

	return rankChunks(candidates, embedding, s.dimension, config)
}

// Count reports document and chunk counts.
func (s *MemoryStore) Count() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), len(s.chunks), nil
}

// Dimension returns the fixed embedding dimension of the collection.
func (s *MemoryStore) Dimension() int {
	return s.dimension
}

// Reset drops all documents and chunks.
func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = map[string]*model.Document{}
	s.byHash = map[string]string{}
	s.chunks = map[string]*model.Chunk{}
	s.log.Info("Reset collection", slog.String("collection", s.name))
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
