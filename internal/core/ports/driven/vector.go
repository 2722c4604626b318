package driven

import "context"

// DistanceMetric names the metric a vector index reports distances in.
type DistanceMetric string

// Supported metrics. The semantic probe normalizes each to cosine
// similarity in [0,1] before thresholds are applied.
const (
	MetricCosineDistance DistanceMetric = "cosine"
	MetricL2             DistanceMetric = "l2"
)

// VectorIndex is the engine's view of the external embedding index.
// The nearest-neighbour structure itself is out of scope; this port only
// assumes a k-NN query. The single Search call is the engine's only
// potential blocking point and honours context cancellation.
type VectorIndex interface {
	// Add inserts a vector under the given ID.
	Add(ctx context.Context, id string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, id string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Metric reports the distance metric of Search results.
	Metric() DistanceMetric

	// Close releases resources.
	Close() error
}

// VectorHit is one raw nearest-neighbour result.
type VectorHit struct {
	// ID is the matched document.
	ID string

	// Distance is in the index's native metric; smaller is closer.
	Distance float64
}
