package paperdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/paperdex/core/cluster"
	"github.com/siherrmann/paperdex/core/extract"
	"github.com/siherrmann/paperdex/core/pipeline"
	"github.com/siherrmann/paperdex/core/retrieval"
	"github.com/siherrmann/paperdex/database"
	"github.com/siherrmann/paperdex/helper"
	"github.com/siherrmann/paperdex/model"
)

// embedBatchSize bounds how many chunk texts go to the provider per call.
const embedBatchSize = 32

// Paperdex provides a unified interface to the ingestion and retrieval
// pipeline: extraction, chunking, deduplicated indexing, similarity search
// and the optional clustering stage.
type Paperdex struct {
	Store     database.VectorStore
	Engine    *retrieval.Engine
	config    *model.Config
	chunk     pipeline.ChunkFunc
	embedder  pipeline.Embedder
	extractor extract.Extractor
	labeler   cluster.Labeler
	// Logging
	log *slog.Logger
}

// New creates a Paperdex instance around the given embedder and extractor.
// An empty PersistDirectory selects the ephemeral in-memory store, anything
// else opens (or creates) a persistent collection under that directory.
func New(config *model.Config, embedder pipeline.Embedder, extractor extract.Extractor) (*Paperdex, error) {
	if config == nil {
		config = model.DefaultConfig()
	} else {
		config.ApplyDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}
	if embedder == nil {
		return nil, helper.NewError("create paperdex", fmt.Errorf("embedder must not be nil"))
	}
	if extractor == nil {
		return nil, helper.NewError("create paperdex", fmt.Errorf("extractor must not be nil"))
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	var store database.VectorStore
	var err error
	if config.PersistDirectory == "" {
		store, err = database.NewMemoryStore(config.CollectionName, embedder.Dimension(), logger)
	} else {
		store, err = database.NewBadgerStore(config.PersistDirectory, config.CollectionName, embedder.Dimension(), embedder.ModelName(), logger)
	}
	if err != nil {
		return nil, helper.NewError("open store", err)
	}

	chunk, err := pipeline.WindowChunker(config.ChunkSize, *config.Overlap)
	if err != nil {
		return nil, helper.NewError("create chunker", err)
	}

	return &Paperdex{
		Store:     store,
		Engine:    retrieval.NewEngine(store, embedder),
		config:    config,
		chunk:     chunk,
		embedder:  embedder,
		extractor: extractor,
		log:       logger,
	}, nil
}

// NewDefault creates a Paperdex instance with the default local pipeline:
// a hugot sentence transformer embedder (downloaded into ModelsDirectory on
// first use) and the pdfcpu based PDF extractor.
func NewDefault(config *model.Config) (*Paperdex, error) {
	if config == nil {
		config = model.DefaultConfig()
	} else {
		config.ApplyDefaults()
	}

	embedder, err := pipeline.NewHugotEmbedder(config.EmbeddingModelName, config.ModelsDirectory)
	if err != nil {
		return nil, helper.NewError("create default embedder", err)
	}

	p, err := New(config, embedder, extract.NewPDFExtractor(nil))
	if err != nil {
		embedder.Close()
		return nil, err
	}
	return p, nil
}

// SetLabeler sets the label generator used by the clustering stage.
func (p *Paperdex) SetLabeler(labeler cluster.Labeler) {
	p.labeler = labeler
}

// UseClaudeLabeler configures the clustering stage to name clusters with the
// Anthropic Messages API. An empty model name selects a current default.
func (p *Paperdex) UseClaudeLabeler(apiKey string, modelName string) error {
	labeler, err := cluster.NewClaudeLabeler(apiKey, modelName)
	if err != nil {
		return helper.NewError("create claude labeler", err)
	}
	p.labeler = labeler
	return nil
}

// AddPaper extracts, chunks, embeds and indexes one document and returns its
// content-derived ID. A document whose content hash is already indexed is
// not re-processed: the existing ID is returned together with
// model.ErrDuplicateDocument.
func (p *Paperdex) AddPaper(ctx context.Context, path string) (string, error) {
	extractCtx, cancel := context.WithTimeout(ctx, p.config.ExtractTimeout)
	defer cancel()

	extraction, err := p.extractor.Extract(extractCtx, path)
	if err != nil {
		return "", helper.NewError("extract paper", err)
	}

	text := strings.TrimSpace(extraction.Text)
	contentHash := pipeline.Fingerprint(text)

	existing, err := p.Store.DocumentByContentHash(contentHash)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return "", helper.NewError("check for duplicate", err)
	}
	if existing != nil {
		p.log.Info("Paper already indexed",
			slog.String("document_id", existing.ID),
			slog.String("path", path),
			slog.String("indexed_from", existing.SourcePath))
		return existing.ID, model.ErrDuplicateDocument
	}

	documentID := pipeline.DocumentID(contentHash)
	windows := p.chunk(text)

	metadata := model.ChunkMetadata{
		SourcePath: path,
		Title:      extraction.Title,
		Author:     extraction.Author,
		Year:       extraction.Year,
	}
	chunks := make([]*model.Chunk, 0, len(windows))
	for i, window := range windows {
		m := metadata
		m.ChunkIndex = i
		chunks = append(chunks, &model.Chunk{
			ID:          model.ChunkID(documentID, window.StartOffset),
			DocumentID:  documentID,
			StartOffset: window.StartOffset,
			Text:        window.Text,
			Metadata:    m,
		})
	}

	if err := p.embedMissing(ctx, chunks); err != nil {
		return "", helper.NewError("embed paper", err)
	}

	document := &model.Document{
		ID:          documentID,
		RID:         uuid.New(),
		SourcePath:  path,
		Title:       extraction.Title,
		Author:      extraction.Author,
		Year:        extraction.Year,
		PageCount:   extraction.PageCount,
		ContentHash: contentHash,
		ChunkCount:  len(chunks),
	}
	if err := p.Store.InsertDocument(document); err != nil {
		return "", helper.NewError("insert paper", err)
	}

	p.log.Info("Indexed paper",
		slog.String("document_id", documentID),
		slog.String("title", document.DisplayTitle()),
		slog.Int("chunk_count", len(chunks)))
	return documentID, nil
}

// embedMissing embeds and upserts only the chunks the store does not hold
// yet, in bounded batches, retrying each batch per the configured bounds.
func (p *Paperdex) embedMissing(ctx context.Context, chunks []*model.Chunk) error {
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
	}
	missingIDs, err := p.Store.MissingChunks(ids)
	if err != nil {
		return err
	}
	if len(missingIDs) == 0 {
		return nil
	}

	missingSet := make(map[string]bool, len(missingIDs))
	for _, id := range missingIDs {
		missingSet[id] = true
	}
	missing := make([]*model.Chunk, 0, len(missingIDs))
	for _, chunk := range chunks {
		if missingSet[chunk.ID] {
			missing = append(missing, chunk)
		}
	}

	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Text)
		}

		embeddings, err := p.embedWithRetry(ctx, texts)
		if err != nil {
			return err
		}
		for i, chunk := range batch {
			chunk.Embedding = embeddings[i]
		}
		if err := p.Store.UpsertChunks(batch); err != nil {
			return err
		}
	}
	return nil
}

// embedWithRetry bounds each provider call with the configured timeout and
// retries transient failures. Exhausted retries surface as an
// EmbeddingError carrying the attempt count.
func (p *Paperdex) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	attempts := p.config.EmbedRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		embedCtx, cancel := context.WithTimeout(ctx, p.config.EmbedTimeout)
		embeddings, err := p.embedder.Embed(embedCtx, texts)
		cancel()
		if err == nil {
			if len(embeddings) != len(texts) {
				return nil, &model.EmbeddingError{Attempts: attempt, Err: fmt.Errorf("provider returned %v embeddings for %v texts", len(embeddings), len(texts))}
			}
			return embeddings, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		p.log.Warn("Embedding attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return nil, &model.EmbeddingError{Attempts: attempts, Err: lastErr}
}

// AddPapersFromDirectory ingests every PDF under dir (non-recursive, case
// insensitive extension match) and returns one result per file. A failed or
// duplicate file never aborts the batch.
func (p *Paperdex) AddPapersFromDirectory(ctx context.Context, dir string) ([]*model.IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, helper.NewError("read paper directory", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	p.log.Info("Ingesting paper directory", slog.String("dir", dir), slog.Int("pdf_count", len(paths)))

	results := make([]*model.IngestResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, helper.NewError("ingest papers", err)
		}

		documentID, err := p.AddPaper(ctx, path)
		result := &model.IngestResult{Path: path, DocumentID: documentID}
		switch {
		case errors.Is(err, model.ErrDuplicateDocument):
			result.Duplicate = true
		case err != nil:
			result.DocumentID = ""
			result.Err = err
			p.log.Warn("Skipping paper", slog.String("path", path), slog.Any("error", err))
		}
		results = append(results, result)
	}
	return results, nil
}

// Search embeds the query and returns the top matching passages. Chunks of
// the same document appear as distinct results.
func (p *Paperdex) Search(ctx context.Context, query string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	return p.Engine.Search(ctx, query, config)
}

// SearchDocuments returns search results grouped per document, ordered by
// each document's best passage score.
func (p *Paperdex) SearchDocuments(ctx context.Context, query string, config *model.QueryConfig) ([]*model.DocumentMatch, error) {
	return p.Engine.SearchDocuments(ctx, query, config)
}

// Stats reports the current document and chunk counts.
func (p *Paperdex) Stats() (*model.Stats, error) {
	documents, chunks, err := p.Store.Count()
	if err != nil {
		return nil, helper.NewError("read stats", err)
	}
	return &model.Stats{DocumentCount: documents, ChunkCount: chunks}, nil
}

// Cluster groups all indexed documents into topic clusters, names them
// through the configured label generator and writes the names back as
// document categories. It returns the new assignment per document ID.
// A labeler must be set first, see SetLabeler and UseClaudeLabeler.
func (p *Paperdex) Cluster(ctx context.Context) (map[string]string, error) {
	if p.labeler == nil {
		return nil, helper.NewError("cluster papers", fmt.Errorf("no labeler set, use SetLabeler() or UseClaudeLabeler() first"))
	}
	clusterer, err := cluster.NewClusterer(p.Store, p.labeler, p.config.MinClusterSize, p.log)
	if err != nil {
		return nil, helper.NewError("cluster papers", err)
	}
	return clusterer.Run(ctx)
}

// Reset removes every document and chunk from the collection.
func (p *Paperdex) Reset() error {
	return p.Store.Reset()
}

// Close releases the store and, when the embedder holds resources such as a
// resident model session, the embedder too.
func (p *Paperdex) Close() error {
	var errs []error
	if p.Store != nil {
		if err := p.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := p.embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
