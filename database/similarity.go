package database

import (
	"fmt"
	"math"
	"sort"

	"github.com/siherrmann/paperdex/model"
)

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeScore maps cosine similarity from [-1,1] onto [0,1] for score
// reporting.
func normalizeScore(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// rankChunks filters, scores and orders candidate chunks against a query
// embedding. Results are ordered by descending similarity with ties broken
// by chunk ID ascending for determinism, truncated to TopK and cut at the
// similarity threshold.
func rankChunks(candidates []*model.Chunk, embedding []float32, dimension int, config *model.QueryConfig) ([]*model.Chunk, error) {
	if config == nil {
		config = model.DefaultQueryConfig()
	}
	if len(embedding) != dimension {
		return nil, &model.ConfigurationError{
			Reason: fmt.Sprintf("query embedding dimension %v does not match collection dimension %v", len(embedding), dimension),
		}
	}

	var scored []*model.Chunk
	for _, chunk := range candidates {
		if !config.Filter.Matches(chunk) {
			continue
		}
		score := normalizeScore(cosineSimilarity(embedding, chunk.Embedding))
		if score < config.SimilarityThreshold {
			continue
		}
		c := *chunk
		c.Similarity = score
		scored = append(scored, &c)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ID < scored[j].ID
	})

	topK := config.TopK
	if topK <= 0 {
		topK = model.DefaultQueryConfig().TopK
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// validateChunks checks embedding dimensions before any write happens, so a
// batch upsert cannot leave mixed-dimension records behind.
func validateChunks(chunks []*model.Chunk, dimension int) error {
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk for document %v has no id", chunk.DocumentID)
		}
		if len(chunk.Embedding) != dimension {
			return &model.ConfigurationError{
				Reason: fmt.Sprintf("chunk %v embedding dimension %v does not match collection dimension %v", chunk.ID, len(chunk.Embedding), dimension),
			}
		}
	}
	return nil
}
