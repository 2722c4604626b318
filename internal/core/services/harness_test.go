package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/vector/brute"
	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/index/exact"
	"github.com/custodia-labs/dedup-cli/internal/index/lsh"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

// harness wires a full engine over in-memory adapters, mirroring the
// production assembly in cmd/dedup.
type harness struct {
	engine   *Engine
	tracker  *ChainTracker
	store    *memory.Store
	vectors  *brute.Index
	sketcher *similarity.Sketcher
	settings domain.EngineSettings
}

func newHarness(t *testing.T, settings domain.EngineSettings) *harness {
	t.Helper()

	store := memory.NewStore()
	exactIdx := exact.New()

	lshIdx, err := lsh.New(lsh.Params{Bands: settings.LSHBands, Rows: settings.LSHRowsPerBand})
	require.NoError(t, err)

	sketcher, err := similarity.NewSketcher(settings.ShingleSize, settings.MinHashPermutations)
	require.NoError(t, err)

	vectors := brute.NewIndex()
	probe := NewSemanticProbe(vectors, settings.SemanticK, settings.ProbeRateLimit)
	classifier := NewClassifier(
		exactIdx, lshIdx, sketcher, store.RecordStore(), probe, nil, settings)
	policy := NewPolicyEngine(settings)
	tracker := NewChainTracker(store.ChainStore(), store.RecordStore(), settings)
	engine := NewEngine(
		classifier, policy, tracker, exactIdx, lshIdx,
		store.RecordStore(), store.ChainStore())

	return &harness{
		engine:   engine,
		tracker:  tracker,
		store:    store,
		vectors:  vectors,
		sketcher: sketcher,
		settings: settings,
	}
}

// ingest classifies and commits one document, failing the test on error.
func (h *harness) ingest(t *testing.T, id, text string) *domain.DuplicateResult {
	t.Helper()
	ctx := context.Background()

	doc := domain.IngestDocument{ID: id, NormalizedText: text}
	c, err := h.engine.Classify(ctx, doc)
	require.NoError(t, err)
	outcome, err := h.engine.Commit(ctx, doc, c)
	require.NoError(t, err)
	return &outcome.Result
}

// saveRecord stores a bare record with a sketched signature, bypassing
// the engine. Used to set up chain scenarios directly.
func (h *harness) saveRecord(t *testing.T, id, text string) {
	t.Helper()

	sig, err := h.sketcher.Sketch(text)
	require.NoError(t, err)
	err = h.store.RecordStore().Save(context.Background(), &domain.DocumentRecord{
		ID:          id,
		ContentHash: similarity.HashContent(text),
		Signature:   sig,
		IndexedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
}

// words returns n distinct space-separated words.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

// editedWords is words(n) with one middle word substituted.
func editedWords(n int) string {
	parts := strings.Fields(words(n))
	parts[n/2] = "substituted"
	return strings.Join(parts, " ")
}
