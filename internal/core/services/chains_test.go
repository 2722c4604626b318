package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

func TestChainTracker_IgnoresNonVersionKinds(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	for _, kind := range []domain.DuplicateKind{
		domain.KindExact, domain.KindUnique, domain.KindUnknown,
	} {
		update, err := h.tracker.Update(ctx, "doc", domain.DuplicateResult{Kind: kind})
		require.NoError(t, err)
		assert.Empty(t, update.ChainID, "kind %s must not touch chains", kind)
	}

	count, err := h.store.ChainStore().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChainTracker_NearCreatesChain(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.saveRecord(t, "original", words(100))
	h.saveRecord(t, "edited", editedWords(100))

	update, err := h.tracker.Update(ctx, "edited", domain.DuplicateResult{
		Kind:       domain.KindNear,
		OriginalID: "original",
		Jaccard:    0.97,
	})
	require.NoError(t, err)
	assert.True(t, update.Created)
	assert.Equal(t, "original", update.PreviousLatest)
	assert.False(t, update.Repaired)

	chain, err := h.tracker.Get(ctx, update.ChainID)
	require.NoError(t, err)
	assert.Equal(t, []string{"original", "edited"}, chain.MemberIDs)
	assert.Equal(t, "edited", chain.Latest())
}

func TestChainTracker_NearAppendsToExistingChain(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.saveRecord(t, "v1", words(100))
	h.saveRecord(t, "v2", editedWords(100))
	h.saveRecord(t, "v3", editedWords(100)+" appended")

	first, err := h.tracker.Update(ctx, "v2", domain.DuplicateResult{
		Kind: domain.KindNear, OriginalID: "v1",
	})
	require.NoError(t, err)

	// v3 matches v2; it must join the existing chain, not start one.
	second, err := h.tracker.Update(ctx, "v3", domain.DuplicateResult{
		Kind: domain.KindNear, OriginalID: "v2",
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ChainID, second.ChainID)
	assert.Equal(t, "v2", second.PreviousLatest)

	chain, err := h.tracker.Get(ctx, first.ChainID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, chain.MemberIDs)
	assert.Equal(t, "v3", chain.Latest())
}

func TestChainTracker_MissingOriginalRepairs(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.saveRecord(t, "survivor", words(100))

	// The matched original was deleted between classification and
	// commit. The update degrades to a single-member chain.
	update, err := h.tracker.Update(ctx, "survivor", domain.DuplicateResult{
		Kind:       domain.KindNear,
		OriginalID: "vanished",
	})
	require.NoError(t, err)
	assert.True(t, update.Created)
	assert.True(t, update.Repaired)

	chain, err := h.tracker.Get(ctx, update.ChainID)
	require.NoError(t, err)
	assert.Equal(t, []string{"survivor"}, chain.MemberIDs)
}

func TestChainTracker_MergeSimilarChains(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	// Two chains whose representatives are one edit apart.
	h.saveRecord(t, "a1", words(1000))
	h.saveRecord(t, "b1", editedWords(1000))

	dst, err := h.store.ChainStore().Create(ctx, []string{"a1"})
	require.NoError(t, err)
	src, err := h.store.ChainStore().Create(ctx, []string{"b1"})
	require.NoError(t, err)

	merged, err := h.tracker.Merge(ctx, dst.ID, src.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "b1"}, merged.MemberIDs)

	_, err = h.tracker.Get(ctx, src.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChainTracker_MergeRefusesDissimilarChains(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.saveRecord(t, "a1", words(500))
	h.saveRecord(t, "b1", "entirely different prose with not a single shared shingle anywhere in it at all")

	dst, err := h.store.ChainStore().Create(ctx, []string{"a1"})
	require.NoError(t, err)
	src, err := h.store.ChainStore().Create(ctx, []string{"b1"})
	require.NoError(t, err)

	_, err = h.tracker.Merge(ctx, dst.ID, src.ID)
	assert.ErrorIs(t, err, domain.ErrChainConflict)

	// Both chains survive a refused merge.
	for _, id := range []string{dst.ID, src.ID} {
		chain, err := h.tracker.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, chain.MemberIDs, 1)
	}
}

func TestChainTracker_MergeSelfRejected(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	_, err := h.tracker.Merge(context.Background(), "chain-1", "chain-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChainTracker_MergeUnsignedRepresentativeRefused(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	// A representative without a signature cannot be verified, so the
	// merge is refused rather than waved through.
	h.saveRecord(t, "a1", words(500))
	err := h.store.RecordStore().Save(ctx, &domain.DocumentRecord{
		ID:          "b1",
		ContentHash: similarity.HashContent("tiny"),
		IndexedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	dst, err := h.store.ChainStore().Create(ctx, []string{"a1"})
	require.NoError(t, err)
	src, err := h.store.ChainStore().Create(ctx, []string{"b1"})
	require.NoError(t, err)

	_, err = h.tracker.Merge(ctx, dst.ID, src.ID)
	assert.ErrorIs(t, err, domain.ErrChainConflict)
}

func TestChainTracker_Split(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	for _, id := range []string{"v1", "v2", "v3"} {
		h.saveRecord(t, id, words(100)+" "+id)
	}
	chain, err := h.store.ChainStore().Create(ctx, []string{"v1", "v2", "v3"})
	require.NoError(t, err)

	newChain, err := h.tracker.Split(ctx, chain.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v3"}, newChain.MemberIDs)

	remaining, err := h.tracker.Get(ctx, chain.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, remaining.MemberIDs)
	assert.Equal(t, "v1", remaining.Latest())
}

func TestChainTracker_SplitAtFirstMemberRejected(t *testing.T) {
	h := newHarness(t, domain.DefaultEngineSettings())
	ctx := context.Background()

	h.saveRecord(t, "v1", words(100))
	h.saveRecord(t, "v2", editedWords(100))
	chain, err := h.store.ChainStore().Create(ctx, []string{"v1", "v2"})
	require.NoError(t, err)

	_, err = h.tracker.Split(ctx, chain.ID, "v1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
