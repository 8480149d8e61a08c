package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/siherrmann/paperdex/helper"
	"github.com/siherrmann/paperdex/model"
	"github.com/timshannon/badgerhold/v4"
)

// collectionManifest pins the embedding dimension and model of a persisted
// collection. Reopening with a different dimension is a fatal configuration
// error, never a silent coercion.
type collectionManifest struct {
	Name      string
	Dimension int
	ModelName string
	CreatedAt time.Time
}

const manifestKey = "collection_manifest"

// BadgerStore is the persistent VectorStore implementation, backed by a
// badgerhold collection under persistDirectory/collectionName. State
// survives process restarts; similarity search is a filtered scan ranked in
// process, which is the right trade-off for a personal paper library.
type BadgerStore struct {
	mu        sync.Mutex
	store     *badgerhold.Store
	name      string
	dimension int
	log       *slog.Logger
}

// NewBadgerStore opens (or creates) the persisted collection and verifies
// its manifest against the configured dimension and model.
func NewBadgerStore(persistDirectory string, name string, dimension int, modelName string, logger *slog.Logger) (*BadgerStore, error) {
	if dimension <= 0 {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("embedding dimension must be positive, got %v", dimension)}
	}
	if name == "" {
		return nil, &model.ConfigurationError{Reason: "collection name must not be empty"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Join(persistDirectory, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &model.StoreError{Operation: "create collection directory", Err: err}
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, &model.StoreError{Operation: "open collection", Err: err}
	}

	s := &BadgerStore{
		store:     store,
		name:      name,
		dimension: dimension,
		log:       logger,
	}

	if err := s.checkManifest(modelName); err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("Opened persistent store",
		slog.String("collection", name),
		slog.String("path", dir),
		slog.Int("dimension", dimension))

	return s, nil
}

func (s *BadgerStore) checkManifest(modelName string) error {
	var manifest collectionManifest
	err := s.store.Get(manifestKey, &manifest)
	if errors.Is(err, badgerhold.ErrNotFound) {
		manifest = collectionManifest{
			Name:      s.name,
			Dimension: s.dimension,
			ModelName: modelName,
			CreatedAt: time.Now(),
		}
		if err := s.store.Upsert(manifestKey, &manifest); err != nil {
			return &model.StoreError{Operation: "write collection manifest", Err: err}
		}
		return nil
	}
	if err != nil {
		return &model.StoreError{Operation: "read collection manifest", Err: err}
	}
	if manifest.Dimension != s.dimension {
		return &model.ConfigurationError{
			Reason: fmt.Sprintf("collection %v was created with dimension %v, configured provider produces %v", s.name, manifest.Dimension, s.dimension),
		}
	}
	return nil
}

// InsertDocument records a document. Re-inserting an existing ID returns
// ErrDuplicateDocument rather than silently overwriting.
func (s *BadgerStore) InsertDocument(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing model.Document
	err := s.store.Get(doc.ID, &existing)
	if err == nil {
		return helper.NewError("insert document", model.ErrDuplicateDocument)
	}
	if !errors.Is(err, badgerhold.ErrNotFound) {
		return &model.StoreError{Operation: "check existing document", Err: err}
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.store.Upsert(doc.ID, doc); err != nil {
		return &model.StoreError{Operation: "insert document", Err: err}
	}
	return nil
}

// Document retrieves a document by ID.
func (s *BadgerStore) Document(id string) (*model.Document, error) {
	var doc model.Document
	err := s.store.Get(id, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, helper.NewError("select document", model.ErrNotFound)
	}
	if err != nil {
		return nil, &model.StoreError{Operation: "select document", Err: err}
	}
	return &doc, nil
}

// DocumentByContentHash retrieves a document by its dedup key.
func (s *BadgerStore) DocumentByContentHash(hash string) (*model.Document, error) {
	var docs []model.Document
	err := s.store.Find(&docs, badgerhold.Where("ContentHash").Eq(hash))
	if err != nil {
		return nil, &model.StoreError{Operation: "select document by hash", Err: err}
	}
	if len(docs) == 0 {
		return nil, helper.NewError("select document by hash", model.ErrNotFound)
	}
	return &docs[0], nil
}

// ExistsContentHash supports document-level dedup before any chunking work.
func (s *BadgerStore) ExistsContentHash(hash string) (bool, error) {
	_, err := s.DocumentByContentHash(hash)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Documents returns all documents in the collection.
func (s *BadgerStore) Documents() ([]*model.Document, error) {
	var docs []model.Document
	err := s.store.Find(&docs, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return nil, &model.StoreError{Operation: "select documents", Err: err}
	}
	result := make([]*model.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// UpdateCategory writes a category onto a document and its chunk metadata.
func (s *BadgerStore) UpdateCategory(documentID string, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc model.Document
	err := s.store.Get(documentID, &doc)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return helper.NewError("update category", model.ErrNotFound)
	}
	if err != nil {
		return &model.StoreError{Operation: "update category", Err: err}
	}

	doc.Category = category
	doc.UpdatedAt = time.Now()
	if err := s.store.Upsert(doc.ID, &doc); err != nil {
		return &model.StoreError{Operation: "update category", Err: err}
	}

	var chunks []model.Chunk
	if err := s.store.Find(&chunks, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return &model.StoreError{Operation: "select chunks for category update", Err: err}
	}
	for i := range chunks {
		chunks[i].Metadata.Category = category
		if err := s.store.Upsert(chunks[i].ID, &chunks[i]); err != nil {
			return &model.StoreError{Operation: "update chunk category", Err: err}
		}
	}
	return nil
}

// UpsertChunks writes chunk records, overwriting any existing record with
// the same chunk ID. Each chunk write is atomic; an interrupted batch leaves
// only whole records behind, which re-ingestion repairs idempotently.
func (s *BadgerStore) UpsertChunks(chunks []*model.Chunk) error {
	if err := validateChunks(chunks, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, chunk := range chunks {
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		if err := s.store.Upsert(chunk.ID, chunk); err != nil {
			return &model.StoreError{Operation: fmt.Sprintf("upsert chunk %v", chunk.ID), Err: err}
		}
	}
	return nil
}

// MissingChunks returns the subset of ids with no stored record.
func (s *BadgerStore) MissingChunks(ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		var chunk model.Chunk
		err := s.store.Get(id, &chunk)
		if errors.Is(err, badgerhold.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, &model.StoreError{Operation: "check chunk", Err: err}
		}
	}
	return missing, nil
}

// ChunksByDocument returns all chunks owned by a document.
func (s *BadgerStore) ChunksByDocument(documentID string) ([]*model.Chunk, error) {
	var chunks []model.Chunk
	err := s.store.Find(&chunks, badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil {
		return nil, &model.StoreError{Operation: "select chunks by document", Err: err}
	}
	result := make([]*model.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

// Query runs a filtered brute-force nearest-neighbor search over the
// persisted chunks.
func (s *BadgerStore) Query(embedding []float32, config *model.QueryConfig) ([]*model.Chunk, error) {
	var chunks []model.Chunk
	err := s.store.Find(&chunks, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return nil, &model.StoreError{Operation: "scan chunks", Err: err}
	}
	candidates := make([]*model.Chunk, len(chunks))
	for i := range chunks {
		candidates[i] = &chunks[i]
	}
	return rankChunks(candidates, embedding, s.dimension, config)
}

// Count reports document and chunk counts.
func (s *BadgerStore) Count() (int, int, error) {
	docs, err := s.Documents()
	if err != nil {
		return 0, 0, err
	}
	var chunks []model.Chunk
	if err := s.store.Find(&chunks, badgerhold.Where("ID").Ne("")); err != nil {
		return 0, 0, &model.StoreError{Operation: "count chunks", Err: err}
	}
	return len(docs), len(chunks), nil
}

// Dimension returns the fixed embedding dimension of the collection.
func (s *BadgerStore) Dimension() int {
	return s.dimension
}

// Reset drops all documents and chunks, keeping the collection manifest.
func (s *BadgerStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteMatching(&model.Chunk{}, badgerhold.Where("ID").Ne("")); err != nil {
		return &model.StoreError{Operation: "reset chunks", Err: err}
	}
	if err := s.store.DeleteMatching(&model.Document{}, badgerhold.Where("ID").Ne("")); err != nil {
		return &model.StoreError{Operation: "reset documents", Err: err}
	}
	s.log.Info("Reset collection", slog.String("collection", s.name))
	return nil
}

// Close closes the underlying badger database.
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
