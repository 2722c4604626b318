package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/dedup-cli/internal/logger"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

// Ensure ChainTracker implements the interface.
var _ driving.ChainService = (*ChainTracker)(nil)

// ChainTracker maintains version chains: which records represent
// successive versions of the same document, and which member is latest.
// Chains only ever move from empty to active; they never close.
type ChainTracker struct {
	chains   driven.ChainStore
	records  driven.RecordStore
	settings domain.EngineSettings
}

// NewChainTracker creates a chain tracker over the given stores.
func NewChainTracker(
	chains driven.ChainStore,
	records driven.RecordStore,
	settings domain.EngineSettings,
) *ChainTracker {
	return &ChainTracker{
		chains:   chains,
		records:  records,
		settings: settings,
	}
}

// Update applies a classification result to chain state. Exact, unique
// and unknown results leave chains untouched. For near and semantic
// results the document joins the original's chain, or forms a new chain
// with the original. A vanished original degrades to a single-member
// chain with a logged inconsistency, never a fatal error.
func (t *ChainTracker) Update(
	ctx context.Context,
	docID string,
	result domain.DuplicateResult,
) (domain.ChainUpdate, error) {
	if result.Kind != domain.KindNear && result.Kind != domain.KindSemantic {
		return domain.ChainUpdate{}, nil
	}

	// The original may have been deleted by external retention between
	// classification and this step.
	if _, err := t.records.Get(ctx, result.OriginalID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.ChainUpdate{}, fmt.Errorf("get original: %w", err)
		}
		logger.Warn("chain inconsistency: original %s missing for %s, creating single-member chain",
			result.OriginalID, docID)
		chain, err := t.chains.Create(ctx, []string{docID})
		if err != nil {
			return domain.ChainUpdate{}, fmt.Errorf("repair chain: %w", err)
		}
		return domain.ChainUpdate{ChainID: chain.ID, Created: true, Repaired: true}, nil
	}

	existing, err := t.chains.GetByMember(ctx, result.OriginalID)
	switch {
	case err == nil:
		previous := existing.Latest()
		if err := t.chains.Append(ctx, existing.ID, docID); err != nil {
			return domain.ChainUpdate{}, fmt.Errorf("append to chain %s: %w", existing.ID, err)
		}
		logger.Debug("chain %s: %s is now latest (was %s)", existing.ID, docID, previous)
		return domain.ChainUpdate{ChainID: existing.ID, PreviousLatest: previous}, nil

	case errors.Is(err, domain.ErrNotFound):
		chain, err := t.chains.Create(ctx, []string{result.OriginalID, docID})
		if err != nil {
			return domain.ChainUpdate{}, fmt.Errorf("create chain: %w", err)
		}
		logger.Debug("chain %s created for %s and %s", chain.ID, result.OriginalID, docID)
		return domain.ChainUpdate{ChainID: chain.ID, Created: true, PreviousLatest: result.OriginalID}, nil

	default:
		return domain.ChainUpdate{}, fmt.Errorf("get chain for %s: %w", result.OriginalID, err)
	}
}

// List returns all version chains.
func (t *ChainTracker) List(ctx context.Context) ([]domain.VersionChain, error) {
	return t.chains.List(ctx)
}

// Get retrieves one chain.
func (t *ChainTracker) Get(ctx context.Context, chainID string) (*domain.VersionChain, error) {
	return t.chains.Get(ctx, chainID)
}

// Merge combines src into dst. Near-duplicate similarity is not assumed
// transitive: the merge requires a direct pairwise check between the two
// chains' representatives (their latest members). A merge that fails the
// check is refused with domain.ErrChainConflict and logged for audit.
func (t *ChainTracker) Merge(ctx context.Context, dstID, srcID string) (*domain.VersionChain, error) {
	if dstID == srcID {
		return nil, fmt.Errorf("%w: cannot merge a chain with itself", domain.ErrInvalidInput)
	}

	dst, err := t.chains.Get(ctx, dstID)
	if err != nil {
		return nil, fmt.Errorf("get dst chain: %w", err)
	}
	src, err := t.chains.Get(ctx, srcID)
	if err != nil {
		return nil, fmt.Errorf("get src chain: %w", err)
	}

	jaccard, err := t.representativeSimilarity(ctx, dst, src)
	if err != nil {
		return nil, err
	}
	if jaccard < t.settings.NearThreshold {
		logger.Warn("merge refused: chains %s and %s, representative jaccard %.3f below %.2f",
			dstID, srcID, jaccard, t.settings.NearThreshold)
		return nil, fmt.Errorf("%w: representative jaccard %.3f", domain.ErrChainConflict, jaccard)
	}

	logger.Info("merging chain %s into %s (representative jaccard %.3f)", srcID, dstID, jaccard)
	if err := t.chains.Merge(ctx, dstID, srcID); err != nil {
		return nil, fmt.Errorf("merge chains: %w", err)
	}
	return t.chains.Get(ctx, dstID)
}

// Split moves fromDocID and all later members into a new chain.
func (t *ChainTracker) Split(ctx context.Context, chainID, fromDocID string) (*domain.VersionChain, error) {
	chain, err := t.chains.Split(ctx, chainID, fromDocID)
	if err != nil {
		return nil, fmt.Errorf("split chain %s: %w", chainID, err)
	}
	logger.Info("chain %s split: %d members moved to %s", chainID, len(chain.MemberIDs), chain.ID)
	return chain, nil
}

// representativeSimilarity estimates Jaccard between the latest members
// of two chains. Degenerate (unsketchable) representatives cannot be
// verified and refuse the merge.
func (t *ChainTracker) representativeSimilarity(
	ctx context.Context,
	a, b *domain.VersionChain,
) (float64, error) {
	recA, err := t.records.Get(ctx, a.Latest())
	if err != nil {
		return 0, fmt.Errorf("get representative of %s: %w", a.ID, err)
	}
	recB, err := t.records.Get(ctx, b.Latest())
	if err != nil {
		return 0, fmt.Errorf("get representative of %s: %w", b.ID, err)
	}
	if recA.Signature == nil || recB.Signature == nil {
		return 0, fmt.Errorf("%w: representative has no signature", domain.ErrChainConflict)
	}
	return similarity.EstimateJaccard(recA.Signature, recB.Signature), nil
}
