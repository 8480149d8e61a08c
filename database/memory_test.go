package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/siherrmann/paperdex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedding builds a unit-length-ish vector pointing mostly along one axis.
func testEmbedding(dimension int, axis int) []float32 {
	embedding := make([]float32, dimension)
	for i := range embedding {
		embedding[i] = 0.01
	}
	embedding[axis%dimension] = 1
	return embedding
}

func testChunk(docID string, offset int, year int, embedding []float32) *model.Chunk {
	y := year
	return &model.Chunk{
		ID:          model.ChunkID(docID, offset),
		DocumentID:  docID,
		StartOffset: offset,
		Text:        fmt.Sprintf("passage of %v at %v", docID, offset),
		Embedding:   embedding,
		Metadata: model.ChunkMetadata{
			SourcePath: "/papers/" + docID + ".pdf",
			Title:      "Title of " + docID,
			Year:       &y,
		},
	}
}

func newTestMemoryStore(t *testing.T) *MemoryStore {
	store, err := NewMemoryStore("testcollection", 8, nil)
	require.NoError(t, err, "Expected NewMemoryStore to not return an error")
	return store
}

func TestNewMemoryStore(t *testing.T) {
	t.Run("Valid dimension", func(t *testing.T) {
		store, err := NewMemoryStore("papers", 384, nil)

		require.NoError(t, err)
		assert.Equal(t, 384, store.Dimension())
	})

	t.Run("Generated collection name", func(t *testing.T) {
		store, err := NewMemoryStore("", 8, nil)

		require.NoError(t, err)
		assert.NotEmpty(t, store.name)
	})

	t.Run("Zero dimension rejected", func(t *testing.T) {
		_, err := NewMemoryStore("papers", 0, nil)

		require.Error(t, err)
		var confErr *model.ConfigurationError
		assert.True(t, errors.As(err, &confErr), "Expected a configuration error")
	})
}

func TestMemoryStoreUpsertChunks(t *testing.T) {
	t.Run("Upsert is keyed by chunk id, not append", func(t *testing.T) {
		store := newTestMemoryStore(t)
		chunk := testChunk("doc_a", 0, 2023, testEmbedding(8, 0))

		require.NoError(t, store.UpsertChunks([]*model.Chunk{chunk}))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{chunk}))

		_, chunks, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, chunks, "Expected re-upserting the same chunk id to not grow the collection")
	})

	t.Run("Dimension mismatch rejected before any write", func(t *testing.T) {
		store := newTestMemoryStore(t)
		good := testChunk("doc_a", 0, 2023, testEmbedding(8, 0))
		bad := testChunk("doc_a", 462, 2023, testEmbedding(4, 0))

		err := store.UpsertChunks([]*model.Chunk{good, bad})

		require.Error(t, err)
		var confErr *model.ConfigurationError
		assert.True(t, errors.As(err, &confErr), "Expected a configuration error for mismatched dimension")
		_, chunks, countErr := store.Count()
		require.NoError(t, countErr)
		assert.Equal(t, 0, chunks, "Expected no partial write from a rejected batch")
	})
}

func TestMemoryStoreQuery(t *testing.T) {
	t.Run("Round trip returns the ingested chunk as top result", func(t *testing.T) {
		store := newTestMemoryStore(t)
		embedding := testEmbedding(8, 2)
		chunk := testChunk("doc_a", 0, 2023, embedding)
		other := testChunk("doc_b", 0, 2021, testEmbedding(8, 5))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{chunk, other}))

		results, err := store.Query(embedding, &model.QueryConfig{TopK: 1})

		require.NoError(t, err)
		require.Equal(t, 1, len(results))
		assert.Equal(t, chunk.ID, results[0].ID)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.001, "Expected similarity close to 1.0 for identical vectors")
	})

	t.Run("Results ordered by descending similarity with id tie-break", func(t *testing.T) {
		store := newTestMemoryStore(t)
		embedding := testEmbedding(8, 1)
		// Two chunks with identical embeddings tie on similarity.
		a := testChunk("doc_a", 0, 2023, embedding)
		b := testChunk("doc_b", 0, 2023, embedding)
		far := testChunk("doc_c", 0, 2023, testEmbedding(8, 6))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{b, far, a}))

		results, err := store.Query(embedding, &model.QueryConfig{TopK: 3})

		require.NoError(t, err)
		require.Equal(t, 3, len(results))
		assert.Equal(t, a.ID, results[0].ID, "Expected tie broken by chunk id ascending")
		assert.Equal(t, b.ID, results[1].ID)
		assert.Equal(t, far.ID, results[2].ID)
	})

	t.Run("Filter excludes non-matching metadata", func(t *testing.T) {
		store := newTestMemoryStore(t)
		embedding := testEmbedding(8, 0)
		require.NoError(t, store.UpsertChunks([]*model.Chunk{
			testChunk("doc_a", 0, 2023, embedding),
			testChunk("doc_b", 0, 2021, embedding),
		}))

		year := 2023
		results, err := store.Query(embedding, &model.QueryConfig{TopK: 10, Filter: &model.Filter{Year: &year}})

		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, chunk := range results {
			require.NotNil(t, chunk.Metadata.Year)
			assert.Equal(t, 2023, *chunk.Metadata.Year, "Expected filter to exclude chunks from other years")
		}
	})

	t.Run("Threshold drops weak results without padding", func(t *testing.T) {
		store := newTestMemoryStore(t)
		embedding := testEmbedding(8, 0)
		require.NoError(t, store.UpsertChunks([]*model.Chunk{
			testChunk("doc_a", 0, 2023, embedding),
			testChunk("doc_b", 0, 2021, testEmbedding(8, 7)),
		}))

		results, err := store.Query(embedding, &model.QueryConfig{TopK: 10, SimilarityThreshold: 0.95})

		require.NoError(t, err)
		require.Equal(t, 1, len(results))
		assert.GreaterOrEqual(t, results[0].Similarity, 0.95)
	})

	t.Run("Empty store returns empty result, not an error", func(t *testing.T) {
		store := newTestMemoryStore(t)

		results, err := store.Query(testEmbedding(8, 0), nil)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Query dimension mismatch rejected", func(t *testing.T) {
		store := newTestMemoryStore(t)

		_, err := store.Query(testEmbedding(4, 0), nil)

		require.Error(t, err)
		var confErr *model.ConfigurationError
		assert.True(t, errors.As(err, &confErr))
	})

	t.Run("Scores are normalized into the unit interval", func(t *testing.T) {
		store := newTestMemoryStore(t)
		embedding := testEmbedding(8, 0)
		opposite := make([]float32, 8)
		for i := range opposite {
			opposite[i] = -embedding[i]
		}
		require.NoError(t, store.UpsertChunks([]*model.Chunk{testChunk("doc_a", 0, 2020, opposite)}))

		results, err := store.Query(embedding, &model.QueryConfig{TopK: 1})

		require.NoError(t, err)
		require.Equal(t, 1, len(results))
		assert.GreaterOrEqual(t, results[0].Similarity, 0.0)
		assert.InDelta(t, 0.0, results[0].Similarity, 0.001, "Expected opposite vectors to score at the bottom of [0,1]")
	})
}

func TestMemoryStoreDocuments(t *testing.T) {
	t.Run("Insert and lookup by content hash", func(t *testing.T) {
		store := newTestMemoryStore(t)
		doc := &model.Document{ID: "doc_a", SourcePath: "/papers/a.pdf", Title: "A", ContentHash: "h1"}

		require.NoError(t, store.InsertDocument(doc))

		exists, err := store.ExistsContentHash("h1")
		require.NoError(t, err)
		assert.True(t, exists)

		found, err := store.DocumentByContentHash("h1")
		require.NoError(t, err)
		assert.Equal(t, "doc_a", found.ID)
	})

	t.Run("Unknown hash does not exist", func(t *testing.T) {
		store := newTestMemoryStore(t)

		exists, err := store.ExistsContentHash("missing")

		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Duplicate insert surfaces ErrDuplicateDocument", func(t *testing.T) {
		store := newTestMemoryStore(t)
		doc := &model.Document{ID: "doc_a", ContentHash: "h1"}

		require.NoError(t, store.InsertDocument(doc))
		err := store.InsertDocument(&model.Document{ID: "doc_a", ContentHash: "h1"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrDuplicateDocument))
	})
}

func TestMemoryStoreUpdateCategory(t *testing.T) {
	t.Run("Category lands on document and denormalized chunk metadata", func(t *testing.T) {
		store := newTestMemoryStore(t)
		require.NoError(t, store.InsertDocument(&model.Document{ID: "doc_a", ContentHash: "h1"}))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{
			testChunk("doc_a", 0, 2023, testEmbedding(8, 0)),
			testChunk("doc_a", 462, 2023, testEmbedding(8, 1)),
		}))

		require.NoError(t, store.UpdateCategory("doc_a", "information retrieval"))

		doc, err := store.Document("doc_a")
		require.NoError(t, err)
		assert.Equal(t, "information retrieval", doc.Category)

		chunks, err := store.ChunksByDocument("doc_a")
		require.NoError(t, err)
		require.Equal(t, 2, len(chunks))
		for _, chunk := range chunks {
			assert.Equal(t, "information retrieval", chunk.Metadata.Category)
		}
	})

	t.Run("Unknown document rejected", func(t *testing.T) {
		store := newTestMemoryStore(t)

		err := store.UpdateCategory("doc_missing", "anything")

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestMemoryStoreMissingChunks(t *testing.T) {
	t.Run("Reports only absent ids", func(t *testing.T) {
		store := newTestMemoryStore(t)
		present := testChunk("doc_a", 0, 2023, testEmbedding(8, 0))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{present}))

		missing, err := store.MissingChunks([]string{present.ID, "doc_a_chunk_462"})

		require.NoError(t, err)
		assert.Equal(t, []string{"doc_a_chunk_462"}, missing)
	})
}

func TestMemoryStoreReset(t *testing.T) {
	t.Run("Reset drops everything", func(t *testing.T) {
		store := newTestMemoryStore(t)
		require.NoError(t, store.InsertDocument(&model.Document{ID: "doc_a", ContentHash: "h1"}))
		require.NoError(t, store.UpsertChunks([]*model.Chunk{testChunk("doc_a", 0, 2023, testEmbedding(8, 0))}))

		require.NoError(t, store.Reset())

		docs, chunks, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, docs)
		assert.Equal(t, 0, chunks)
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	t.Run("Queries stay safe during category updates", func(t *testing.T) {
		store := newTestMemoryStore(t)
		require.NoError(t, store.InsertDocument(&model.Document{ID: "doc_a", ContentHash: "h1"}))
		chunks := []*model.Chunk{
			testChunk("doc_a", 0, 2023, testEmbedding(8, 0)),
			testChunk("doc_a", 462, 2023, testEmbedding(8, 1)),
			testChunk("doc_a", 924, 2023, testEmbedding(8, 2)),
		}
		require.NoError(t, store.UpsertChunks(chunks))

		done := make(chan struct{})
		var updateErr error
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				if err := store.UpdateCategory("doc_a", fmt.Sprintf("category %v", i)); err != nil {
					updateErr = err
					return
				}
			}
		}()

		for i := 0; i < 200; i++ {
			results, err := store.Query(testEmbedding(8, 0), nil)
			require.NoError(t, err)
			require.NotEmpty(t, results)
		}
		<-done
		require.NoError(t, updateErr)

		final, err := store.Query(testEmbedding(8, 0), nil)
		require.NoError(t, err)
		assert.Equal(t, "category 199", final[0].Metadata.Category)
	})
}
