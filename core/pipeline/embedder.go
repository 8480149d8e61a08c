package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/paperdex/helper"
)

// Embedder converts batches of text into fixed-length vectors, one per input
// in order. The dimension is constant for the lifetime of the instance; a
// collection created with one dimension rejects vectors of any other.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// HugotEmbedder runs a sentence transformer model locally through hugot.
// The model is loaded once at construction and held resident in memory, so
// the instance should be shared across all ingestion and query calls rather
// than recreated per call.
type HugotEmbedder struct {
	session   *hugot.Session
	run       func(texts []string) ([][]float32, error)
	modelName string
	dimension int
}

// NewHugotEmbedder downloads the model if needed and initializes a hugot
// session with the Go backend. The default all-MiniLM-L6-v2 model produces
// 384-dimensional embeddings.
func NewHugotEmbedder(modelName string, modelsDir string) (*HugotEmbedder, error) {
	modelPath, err := helper.PrepareModel(modelName, modelsDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "paperdex-embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
		}
		return result.Embeddings, nil
	}

	// Probe once to pin the dimension for the lifetime of the instance.
	probe, err := run([]string{"paperdex"})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to probe embedding dimension: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}

	return &HugotEmbedder{
		session:   session,
		run:       run,
		modelName: modelName,
		dimension: len(probe[0]),
	}, nil
}

// Embed generates embeddings for all texts in one batched call.
func (e *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	return e.run(texts)
}

// Dimension returns the embedding vector length produced by the model.
func (e *HugotEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the configured model identifier.
func (e *HugotEmbedder) ModelName() string {
	return e.modelName
}

// Close destroys the hugot session and releases the resident model.
func (e *HugotEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
