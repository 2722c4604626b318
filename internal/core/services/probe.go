package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
)

// ProbeHit is one semantic neighbour with its distance already converted
// to cosine similarity in [0,1].
type ProbeHit struct {
	ID         string
	Similarity float64
}

// SemanticProbe queries the external vector index for embedding-nearest
// neighbours and interprets distances as similarity. The index itself is
// external; this component only issues the k-NN query, normalizes the
// metric, filters the querying document out of its own results, and
// bounds the call with a timeout and an optional rate limit.
type SemanticProbe struct {
	index   driven.VectorIndex
	k       int
	limiter *rate.Limiter
}

// NewSemanticProbe creates a probe over the given vector index.
// probesPerSecond of zero disables rate limiting.
func NewSemanticProbe(index driven.VectorIndex, k int, probesPerSecond float64) *SemanticProbe {
	var limiter *rate.Limiter
	if probesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(probesPerSecond), 1)
	}
	return &SemanticProbe{
		index:   index,
		k:       k,
		limiter: limiter,
	}
}

// Probe returns up to k neighbours of the embedding, ordered by
// descending similarity, excluding selfID. A nil embedding or missing
// index yields domain.ErrProbeUnavailable; a context deadline yields
// domain.ErrProbeTimeout. The caller maps either to the unknown outcome.
func (p *SemanticProbe) Probe(ctx context.Context, selfID string, embedding []float32) ([]ProbeHit, error) {
	if p == nil || p.index == nil {
		return nil, domain.ErrProbeUnavailable
	}
	if len(embedding) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite embedding value", domain.ErrInvalidInput)
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProbeTimeout, err)
		}
	}

	// Ask for one extra neighbour since the document's own vector may
	// already be present in the index.
	hits, err := p.index.Search(ctx, embedding, p.k+1)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", domain.ErrProbeTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProbeUnavailable, err)
	}

	metric := p.index.Metric()
	results := make([]ProbeHit, 0, len(hits))
	for _, hit := range hits {
		if hit.ID == selfID {
			continue
		}
		results = append(results, ProbeHit{
			ID:         hit.ID,
			Similarity: toSimilarity(metric, hit.Distance),
		})
		if len(results) == p.k {
			break
		}
	}
	return results, nil
}

// toSimilarity converts a native distance to cosine similarity in [0,1].
func toSimilarity(metric driven.DistanceMetric, distance float64) float64 {
	var sim float64
	switch metric {
	case driven.MetricCosineDistance:
		sim = 1.0 - distance
	case driven.MetricL2:
		// Monotone mapping of L2 distance onto (0,1].
		sim = 1.0 / (1.0 + distance)
	default:
		sim = 1.0 - distance
	}
	return clamp01(sim)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
