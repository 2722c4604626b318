package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/dedup-cli/internal/index/exact"
	"github.com/custodia-labs/dedup-cli/internal/index/lsh"
	"github.com/custodia-labs/dedup-cli/internal/logger"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

// Classifier runs the three deduplication tiers in strict order:
// exact hash, MinHash/LSH, then the semantic probe. Each tier
// short-circuits the rest on a match. Classification is read-only; the
// engine's commit phase applies mutations.
type Classifier struct {
	exactIndex *exact.Index
	lshIndex   *lsh.Index
	sketcher   *similarity.Sketcher
	records    driven.RecordStore
	probe      *SemanticProbe
	tieBreak   similarity.TieBreak
	settings   domain.EngineSettings
}

// NewClassifier creates a classifier over the given owned index
// structures. The probe may be nil; the semantic tier then reports
// unknown instead of unique. tieBreak defaults to highest-Jaccard.
func NewClassifier(
	exactIndex *exact.Index,
	lshIndex *lsh.Index,
	sketcher *similarity.Sketcher,
	records driven.RecordStore,
	probe *SemanticProbe,
	tieBreak similarity.TieBreak,
	settings domain.EngineSettings,
) *Classifier {
	if tieBreak == nil {
		tieBreak = similarity.HighestJaccard
	}
	return &Classifier{
		exactIndex: exactIndex,
		lshIndex:   lshIndex,
		sketcher:   sketcher,
		records:    records,
		probe:      probe,
		tieBreak:   tieBreak,
		settings:   settings,
	}
}

// Classify validates the input and runs the tiers. Only input errors
// propagate; every other failure degrades onto the result diagnostics.
func (c *Classifier) Classify(
	ctx context.Context,
	doc domain.IngestDocument,
) (domain.DuplicateResult, domain.Hash256, domain.MinHashSignature, error) {
	var zero domain.Hash256

	if err := validateInput(doc); err != nil {
		return domain.DuplicateResult{}, zero, nil, err
	}

	// Tier 1: exact content hash.
	hash := similarity.HashContent(doc.NormalizedText)
	if originalID, ok := c.exactIndex.Lookup(hash); ok {
		logger.Debug("tier 1 hit: %s duplicates %s", doc.ID, originalID)
		return domain.DuplicateResult{
			Kind:       domain.KindExact,
			OriginalID: originalID,
		}, hash, nil, nil
	}

	result := domain.DuplicateResult{Kind: domain.KindUnique}

	// Tier 2: MinHash signature and LSH candidates.
	sig, err := c.sketcher.Sketch(doc.NormalizedText)
	switch {
	case errors.Is(err, domain.ErrTextTooShort):
		// Degenerate document: too few words to shingle. Routed straight
		// to the semantic tier, never a crash.
		logger.Debug("tier 2 skipped for %s: %v", doc.ID, err)
		result.Diagnostics = append(result.Diagnostics, domain.Degradation{
			Tier:   "near",
			Reason: "text shorter than shingle size",
		})
	case err != nil:
		return domain.DuplicateResult{}, zero, nil, fmt.Errorf("sketch: %w", err)
	default:
		near, tierErr := c.nearTier(ctx, doc.ID, sig)
		if tierErr != nil {
			logger.Warn("tier 2 degraded for %s: %v", doc.ID, tierErr)
			result.Diagnostics = append(result.Diagnostics, domain.Degradation{
				Tier:   "near",
				Reason: tierErr.Error(),
			})
		} else if near != nil {
			near.Diagnostics = result.Diagnostics
			return *near, hash, sig, nil
		}
	}

	// Tier 3: semantic probe against the external vector index.
	semantic, tierErr := c.semanticTier(ctx, doc)
	if tierErr != nil {
		// Unavailable or timed out: the document cannot be fully
		// classified. Report unknown, never a silent unique.
		logger.Warn("tier 3 degraded for %s: %v", doc.ID, tierErr)
		result.Kind = domain.KindUnknown
		result.Diagnostics = append(result.Diagnostics, domain.Degradation{
			Tier:   "semantic",
			Reason: tierErr.Error(),
		})
		return result, hash, sig, nil
	}
	if semantic != nil {
		semantic.Diagnostics = result.Diagnostics
		return *semantic, hash, sig, nil
	}

	return result, hash, sig, nil
}

// nearTier queries the LSH index and re-verifies candidates against
// stored signatures. Returns nil when nothing meets the threshold.
func (c *Classifier) nearTier(
	ctx context.Context,
	docID string,
	sig domain.MinHashSignature,
) (*domain.DuplicateResult, error) {
	candidateIDs, err := c.lshIndex.Query(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	// Bucket hits are candidates only; re-verify each with the exact
	// signature-position estimate.
	var verified []similarity.Candidate
	for _, id := range candidateIDs {
		if id == docID {
			continue
		}
		rec, err := c.records.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		verified = append(verified, similarity.CandidateFromRecord(sig, rec))
	}

	above := similarity.AboveThreshold(verified, c.settings.NearThreshold)
	winner, ok := c.tieBreak(above)
	if !ok {
		return nil, nil
	}

	logger.Debug("tier 2 hit: %s ~ %s (jaccard %.3f, %d candidates)",
		docID, winner.ID, winner.Jaccard, len(candidateIDs))
	return &domain.DuplicateResult{
		Kind:       domain.KindNear,
		OriginalID: winner.ID,
		Jaccard:    winner.Jaccard,
	}, nil
}

// semanticTier probes the external vector index under the configured
// timeout. Returns nil when the top similarity misses the threshold.
func (c *Classifier) semanticTier(
	ctx context.Context,
	doc domain.IngestDocument,
) (*domain.DuplicateResult, error) {
	if c.settings.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.ProbeTimeout)
		defer cancel()
	}

	hits, err := c.probe.Probe(ctx, doc.ID, doc.Embedding)
	if err != nil {
		return nil, err
	}

	best := ProbeHit{Similarity: -1}
	for _, hit := range hits {
		if hit.Similarity > best.Similarity {
			best = hit
		}
	}
	if best.ID == "" || best.Similarity < c.settings.SemanticThreshold {
		return nil, nil
	}

	logger.Debug("tier 3 hit: %s ~ %s (cosine %.3f)", doc.ID, best.ID, best.Similarity)
	return &domain.DuplicateResult{
		Kind:       domain.KindSemantic,
		OriginalID: best.ID,
		Cosine:     best.Similarity,
	}, nil
}

// validateInput rejects malformed documents before tier 1.
func validateInput(doc domain.IngestDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.NormalizedText) == "" {
		return fmt.Errorf("%w: empty normalized text", domain.ErrInvalidInput)
	}
	for _, v := range doc.Embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite embedding value", domain.ErrInvalidInput)
		}
	}
	return nil
}

// Settings returns the classifier's settings (read-only).
func (c *Classifier) Settings() domain.EngineSettings {
	return c.settings
}
