// Package cluster groups indexed documents into topic clusters and assigns
// each one a human readable category.
//
// Documents are represented by the mean of their chunk embeddings. A density
// based scan (no preset cluster count) partitions them; documents in sparse
// regions keep the Unclustered sentinel. Every run replaces all prior
// category assignments.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/paperdex/database"
	"github.com/siherrmann/paperdex/helper"
	"github.com/siherrmann/paperdex/model"
)

// Unclustered marks documents that fall below the minimum cluster density.
const Unclustered = "unclustered"

// defaultEpsilon is the cosine distance neighborhood radius. Embeddings of
// topically related papers from sentence transformer models typically sit
// within this radius of each other.
const defaultEpsilon = 0.35

// representativeTitles is how many titles near the centroid are shown to the
// label generator per cluster.
const representativeTitles = 3

const noiseLabel = -1
const unvisited = 0

// Clusterer runs the batch clustering stage against a store.
type Clusterer struct {
	store          database.VectorStore
	labeler        Labeler
	minClusterSize int
	epsilon        float64
	log            *slog.Logger
}

// NewClusterer returns a Clusterer writing categories through the given store.
// The labeler is required, sparse documents are labeled with Unclustered.
func NewClusterer(store database.VectorStore, labeler Labeler, minClusterSize int, logger *slog.Logger) (*Clusterer, error) {
	if store == nil {
		return nil, helper.NewError("NewClusterer", fmt.Errorf("store must not be nil"))
	}
	if labeler == nil {
		return nil, helper.NewError("NewClusterer", fmt.Errorf("labeler must not be nil"))
	}
	if minClusterSize < 2 {
		return nil, helper.NewError("NewClusterer", &model.ConfigurationError{Reason: fmt.Sprintf("min cluster size must be at least 2, got %v", minClusterSize)})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Clusterer{
		store:          store,
		labeler:        labeler,
		minClusterSize: minClusterSize,
		epsilon:        defaultEpsilon,
		log:            logger,
	}, nil
}

// point is one document prepared for clustering.
type point struct {
	documentID string
	title      string
	embedding  []float64
}

// Run recomputes the category of every indexed document and returns the new
// assignments keyed by document id. Prior assignments are replaced wholesale.
func (c *Clusterer) Run(ctx context.Context) (map[string]string, error) {
	runID := uuid.New()

	points, err := c.collectPoints(ctx)
	if err != nil {
		return nil, helper.NewError("Run", err)
	}
	c.log.Info("clustering documents", slog.String("run_id", runID.String()), slog.Int("document_count", len(points)))

	labels := dbscan(points, c.epsilon, c.minClusterSize)

	clusters := map[int][]int{}
	for i, label := range labels {
		if label != noiseLabel {
			clusters[label] = append(clusters[label], i)
		}
	}

	assignments := make(map[string]string, len(points))
	for i, p := range points {
		if labels[i] == noiseLabel {
			assignments[p.documentID] = Unclustered
		}
	}

	clusterIDs := make([]int, 0, len(clusters))
	for id := range clusters {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	for _, id := range clusterIDs {
		members := clusters[id]
		category := c.labelCluster(ctx, runID, id, points, members)
		for _, i := range members {
			assignments[points[i].documentID] = category
		}
	}

	for documentID, category := range assignments {
		if err := c.store.UpdateCategory(documentID, category); err != nil {
			return nil, helper.NewError("Run", err)
		}
	}

	c.log.Info("clustering finished", slog.String("run_id", runID.String()), slog.Int("cluster_count", len(clusters)))
	return assignments, nil
}

// collectPoints loads every document and averages its chunk embeddings.
// Documents without embedded chunks are skipped.
func (c *Clusterer) collectPoints(ctx context.Context) ([]point, error) {
	documents, err := c.store.Documents()
	if err != nil {
		return nil, err
	}

	points := make([]point, 0, len(documents))
	for _, document := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := c.store.ChunksByDocument(document.ID)
		if err != nil {
			return nil, err
		}
		embedding := meanEmbedding(chunks)
		if embedding == nil {
			c.log.Warn("skipping document without embeddings", slog.String("document_id", document.ID))
			continue
		}
		points = append(points, point{
			documentID: document.ID,
			title:      document.DisplayTitle(),
			embedding:  embedding,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].documentID < points[j].documentID })
	return points, nil
}

// labelCluster asks the label generator for a short name, falling back to a
// positional name when the generator fails.
func (c *Clusterer) labelCluster(ctx context.Context, runID uuid.UUID, id int, points []point, members []int) string {
	titles := titlesNearCentroid(points, members, representativeTitles)

	category, err := c.labeler.Label(ctx, titles)
	if err != nil || category == "" {
		fallback := fmt.Sprintf("cluster %v", id+1)
		c.log.Warn("label generation failed, using fallback",
			slog.String("run_id", runID.String()),
			slog.String("fallback", fallback),
			slog.Any("error", err))
		return fallback
	}

	c.log.Info("labeled cluster",
		slog.String("run_id", runID.String()),
		slog.Int("member_count", len(members)),
		slog.String("category", category))
	return category
}

// titlesNearCentroid returns up to n member titles ordered by cosine distance
// to the cluster centroid.
func titlesNearCentroid(points []point, members []int, n int) []string {
	centroid := make([]float64, len(points[members[0]].embedding))
	for _, i := range members {
		for d, v := range points[i].embedding {
			centroid[d] += v
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(members))
	}

	ordered := make([]int, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(a, b int) bool {
		return cosineDistance(points[ordered[a]].embedding, centroid) < cosineDistance(points[ordered[b]].embedding, centroid)
	})

	if n > len(ordered) {
		n = len(ordered)
	}
	titles := make([]string, 0, n)
	for _, i := range ordered[:n] {
		titles = append(titles, points[i].title)
	}
	return titles
}

// dbscan labels each point with a cluster index starting at 1, or noiseLabel
// for points in regions sparser than minPoints within epsilon.
func dbscan(points []point, epsilon float64, minPoints int) []int {
	labels := make([]int, len(points))
	cluster := 0

	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, epsilon)
		if len(neighbors) < minPoints {
			labels[i] = noiseLabel
			continue
		}

		cluster++
		labels[i] = cluster

		// Seed set grows while density-reachable points are found.
		for k := 0; k < len(neighbors); k++ {
			j := neighbors[k]
			if labels[j] == noiseLabel {
				labels[j] = cluster
				continue
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			expanded := regionQuery(points, j, epsilon)
			if len(expanded) >= minPoints {
				neighbors = append(neighbors, expanded...)
			}
		}
	}

	return labels
}

// regionQuery returns the indices of all points within epsilon of points[i],
// including i itself.
func regionQuery(points []point, i int, epsilon float64) []int {
	var neighbors []int
	for j := range points {
		if cosineDistance(points[i].embedding, points[j].embedding) <= epsilon {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// cosineDistance is 1 minus the cosine similarity of a and b.
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// meanEmbedding averages the embeddings of the given chunks, nil when no
// chunk carries one.
func meanEmbedding(chunks []*model.Chunk) []float64 {
	var mean []float64
	count := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if mean == nil {
			mean = make([]float64, len(chunk.Embedding))
		}
		if len(chunk.Embedding) != len(mean) {
			continue
		}
		for d, v := range chunk.Embedding {
			mean[d] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for d := range mean {
		mean[d] /= float64(count)
	}
	return mean
}
