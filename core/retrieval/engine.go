package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/paperdex/core/pipeline"
	"github.com/siherrmann/paperdex/database"
	"github.com/siherrmann/paperdex/model"
)

// Engine answers natural-language queries against the vector store. It
// embeds the query with the same provider used at ingestion, delegates
// ranking to the store and maps chunk hits to passage-level results.
type Engine struct {
	store    database.VectorStore
	embedder pipeline.Embedder
}

// NewEngine creates a new retrieval engine.
func NewEngine(store database.VectorStore, embedder pipeline.Embedder) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
	}
}

// Search returns the passages most similar to the query, ordered by
// descending similarity. Chunks from the same document stay distinct. An
// empty collection or zero matches after filtering yields an empty slice,
// never an error.
func (e *Engine) Search(ctx context.Context, query string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	if config == nil {
		config = model.DefaultQueryConfig()
	}
	if strings.TrimSpace(query) == "" {
		return []*model.SearchResult{}, nil
	}

	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &model.EmbeddingError{Attempts: 1, Err: err}
	}
	if len(embeddings) != 1 {
		return nil, &model.EmbeddingError{Attempts: 1, Err: fmt.Errorf("provider returned %v embeddings for one query", len(embeddings))}
	}

	chunks, err := e.store.Query(embeddings[0], config)
	if err != nil {
		return nil, err
	}

	results := make([]*model.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, resultFromChunk(chunk))
	}
	return results, nil
}

// SearchDocuments assembles document-level summaries from chunk hits. Each
// match carries the document's best-scoring passage first.
func (e *Engine) SearchDocuments(ctx context.Context, query string, config *model.QueryConfig) ([]*model.DocumentMatch, error) {
	results, err := e.Search(ctx, query, config)
	if err != nil {
		return nil, err
	}
	return GroupByDocument(results), nil
}

// GroupByDocument buckets passage results per document, ordered by each
// document's best score. Passage order inside a bucket follows the input
// ranking.
func GroupByDocument(results []*model.SearchResult) []*model.DocumentMatch {
	byDoc := make(map[string]*model.DocumentMatch)
	var order []string

	for _, result := range results {
		match, ok := byDoc[result.DocumentID]
		if !ok {
			match = &model.DocumentMatch{
				DocumentID: result.DocumentID,
				Title:      result.Title,
				BestScore:  result.Similarity,
			}
			byDoc[result.DocumentID] = match
			order = append(order, result.DocumentID)
		}
		if result.Similarity > match.BestScore {
			match.BestScore = result.Similarity
		}
		match.Passages = append(match.Passages, result)
	}

	matches := make([]*model.DocumentMatch, 0, len(order))
	for _, id := range order {
		matches = append(matches, byDoc[id])
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].BestScore > matches[j].BestScore
	})
	return matches
}

func resultFromChunk(chunk *model.Chunk) *model.SearchResult {
	title := chunk.Metadata.Title
	if title == "" {
		title = model.UnknownField
	}
	author := chunk.Metadata.Author
	if author == "" {
		author = model.UnknownField
	}
	return &model.SearchResult{
		ChunkID:    chunk.ID,
		DocumentID: chunk.DocumentID,
		Title:      title,
		Author:     author,
		Year:       chunk.Metadata.Year,
		Category:   chunk.Metadata.Category,
		SourcePath: chunk.Metadata.SourcePath,
		Text:       chunk.Text,
		Similarity: chunk.Similarity,
	}
}
