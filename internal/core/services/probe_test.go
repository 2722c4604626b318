package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/vector/brute"
	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

func TestSemanticProbe_NilIndexUnavailable(t *testing.T) {
	probe := NewSemanticProbe(nil, 8, 0)
	_, err := probe.Probe(context.Background(), "doc", []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrProbeUnavailable)
}

func TestSemanticProbe_EmptyEmbedding(t *testing.T) {
	probe := NewSemanticProbe(brute.NewIndex(), 8, 0)
	_, err := probe.Probe(context.Background(), "doc", nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSemanticProbe_FiltersSelf(t *testing.T) {
	ctx := context.Background()
	idx := brute.NewIndex()
	require.NoError(t, idx.Add(ctx, "self", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "other", []float32{0.9, 0.1, 0}))

	probe := NewSemanticProbe(idx, 8, 0)
	hits, err := probe.Probe(ctx, "self", []float32{1, 0, 0})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "other", hits[0].ID)
}

func TestSemanticProbe_ConvertsDistanceToSimilarity(t *testing.T) {
	ctx := context.Background()
	idx := brute.NewIndex()
	require.NoError(t, idx.Add(ctx, "identical", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "orthogonal", []float32{0, 1}))

	probe := NewSemanticProbe(idx, 8, 0)
	hits, err := probe.Probe(ctx, "query", []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "identical", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Equal(t, "orthogonal", hits[1].ID)
	assert.InDelta(t, 0.0, hits[1].Similarity, 1e-6)
}

func TestSemanticProbe_TruncatesToK(t *testing.T) {
	ctx := context.Background()
	idx := brute.NewIndex()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, idx.Add(ctx, id, []float32{1, float32(len(id))}))
	}

	probe := NewSemanticProbe(idx, 2, 0)
	hits, err := probe.Probe(ctx, "query", []float32{1, 0})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSemanticProbe_CancelledContextIsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := brute.NewIndex()
	require.NoError(t, idx.Add(context.Background(), "a", []float32{1, 0}))

	probe := NewSemanticProbe(idx, 8, 0)
	_, err := probe.Probe(ctx, "query", []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrProbeTimeout)
}

func TestSemanticProbe_NonFiniteEmbedding(t *testing.T) {
	probe := NewSemanticProbe(brute.NewIndex(), 8, 0)
	_, err := probe.Probe(context.Background(), "doc", []float32{float32(math.Inf(1))})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
