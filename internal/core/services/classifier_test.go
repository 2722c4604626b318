package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

func TestClassifier_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	tests := []struct {
		name string
		doc  domain.IngestDocument
	}{
		{"empty id", domain.IngestDocument{ID: "  ", NormalizedText: words(50)}},
		{"empty text", domain.IngestDocument{ID: "doc-1", NormalizedText: "   "}},
		{"nan embedding", domain.IngestDocument{
			ID:             "doc-1",
			NormalizedText: words(50),
			Embedding:      []float32{0.5, float32(math.NaN())},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Classify(ctx, tt.doc)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestClassifier_ExactTierShortCircuits(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	text := words(200)

	h.ingest(t, "original", text)

	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "copy",
		NormalizedText: text,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindExact, c.Result.Kind)
	assert.Equal(t, "original", c.Result.OriginalID)
	assert.Equal(t, 1.0, c.Result.Score())
	// Tier 1 hits never compute a signature.
	assert.Nil(t, c.Signature)
}

func TestClassifier_NearTierFindsEditedCopy(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())

	h.ingest(t, "original", words(1000))

	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "edited",
		NormalizedText: editedWords(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindNear, c.Result.Kind)
	assert.Equal(t, "original", c.Result.OriginalID)
	// A single substitution in 1000 words keeps Jaccard far above the
	// default threshold.
	assert.Greater(t, c.Result.Jaccard, 0.95)
	assert.NotNil(t, c.Signature)
}

func TestClassifier_DistinctTextIsUnique(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())

	h.ingest(t, "original", words(500))

	// An embedding is supplied so the semantic tier runs against the
	// empty vector index and comes back clean.
	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "unrelated",
		NormalizedText: "completely different content about another topic entirely with no overlap",
		Embedding:      []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnique, c.Result.Kind)
	assert.Empty(t, c.Result.OriginalID)
}

func TestClassifier_TooShortTextSkipsNearTier(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())

	// Two words cannot form a 3-shingle. No embedding either, so the
	// semantic tier degrades too: the document is unknown, not unique.
	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "tiny",
		NormalizedText: "two words",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnknown, c.Result.Kind)
	assert.True(t, c.Result.Degraded())

	tiers := make([]string, 0, len(c.Result.Diagnostics))
	for _, d := range c.Result.Diagnostics {
		tiers = append(tiers, d.Tier)
	}
	assert.Equal(t, []string{"near", "semantic"}, tiers)
}

func TestClassifier_SemanticTierMatchesEmbedding(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.ingest(t, "original", words(300))
	require.NoError(t, h.vectors.Add(ctx, "original", []float32{1, 0, 0}))

	// Different words, nearly identical embedding: only tier 3 can see it.
	c, err := h.engine.Classify(ctx, domain.IngestDocument{
		ID:             "paraphrase",
		NormalizedText: "a full paraphrase that shares no vocabulary with the original document text",
		Embedding:      []float32{0.999, 0.001, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindSemantic, c.Result.Kind)
	assert.Equal(t, "original", c.Result.OriginalID)
	assert.GreaterOrEqual(t, c.Result.Cosine, h.settings.SemanticThreshold)
}

func TestClassifier_SemanticBelowThresholdIsUnique(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.ingest(t, "original", words(300))
	require.NoError(t, h.vectors.Add(ctx, "original", []float32{1, 0, 0}))

	c, err := h.engine.Classify(ctx, domain.IngestDocument{
		ID:             "distant",
		NormalizedText: "vaguely related material on a neighbouring subject with different wording",
		Embedding:      []float32{0.5, 0.8, 0.3},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnique, c.Result.Kind)
}

func TestClassifier_NoEmbeddingDegradesToUnknown(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())

	// Sketchable text, empty LSH candidates, no embedding: the semantic
	// tier cannot run and the verdict must not silently become unique.
	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "no-embedding",
		NormalizedText: words(100),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnknown, c.Result.Kind)
	require.Len(t, c.Result.Diagnostics, 1)
	assert.Equal(t, "semantic", c.Result.Diagnostics[0].Tier)
}

func TestClassifier_NearTierPrefersHighestJaccard(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())

	base := words(1000)
	h.ingest(t, "far", editedWords(1000))
	h.ingest(t, "close", base)

	// Remove one trailing word: closer to "close" than to "far".
	parts := []byte(base)
	query := string(parts[:len(parts)-len(" word999")])

	c, err := h.engine.Classify(context.Background(), domain.IngestDocument{
		ID:             "query",
		NormalizedText: query,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindNear, c.Result.Kind)
	assert.Equal(t, "close", c.Result.OriginalID)
}
