// Package brute provides an in-process brute-force vector index. It
// scans every stored embedding per query, which is fine for local
// corpora; large deployments swap in an external ANN service behind the
// same port.
package brute

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

// Index holds embeddings in memory and answers k-NN queries by exact
// cosine-distance scan.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		vectors: make(map[string][]float32),
	}
}

// Add inserts a vector under the given ID, replacing any existing one.
func (idx *Index) Add(_ context.Context, id string, embedding []float32) error {
	if id == "" || len(embedding) == 0 {
		return domain.ErrInvalidInput
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[id] = append([]float32(nil), embedding...)
	return nil
}

// Delete removes a vector from the index.
func (idx *Index) Delete(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
	return nil
}

// Search finds the k nearest neighbours to the query vector by scanning
// all stored vectors. Honours context cancellation between scans.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 || k <= 0 {
		return nil, domain.ErrInvalidInput
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, driven.VectorHit{
			ID:       id,
			Distance: 1 - cosineSimilarity(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Metric reports cosine distance.
func (idx *Index) Metric() driven.DistanceMetric {
	return driven.MetricCosineDistance
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either has zero magnitude or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
