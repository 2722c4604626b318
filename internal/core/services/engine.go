package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/dedup-cli/internal/index/exact"
	"github.com/custodia-labs/dedup-cli/internal/index/lsh"
	"github.com/custodia-labs/dedup-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.DedupService = (*Engine)(nil)

// Engine is the deduplication engine facade: a read-only Classify phase
// and a mutating Commit phase. Cancellation between the phases leaves no
// trace in engine state. All shared structures are owned by the engine
// instance and passed in at construction, never package-level singletons.
type Engine struct {
	classifier *Classifier
	policy     *PolicyEngine
	tracker    *ChainTracker
	exactIndex *exact.Index
	lshIndex   *lsh.Index
	records    driven.RecordStore
	chains     driven.ChainStore
}

// NewEngine assembles the engine from its parts.
func NewEngine(
	classifier *Classifier,
	policy *PolicyEngine,
	tracker *ChainTracker,
	exactIndex *exact.Index,
	lshIndex *lsh.Index,
	records driven.RecordStore,
	chains driven.ChainStore,
) *Engine {
	return &Engine{
		classifier: classifier,
		policy:     policy,
		tracker:    tracker,
		exactIndex: exactIndex,
		lshIndex:   lshIndex,
		records:    records,
		chains:     chains,
	}
}

// Classify runs the three tiers and the policy lookup without mutating
// any engine state.
func (e *Engine) Classify(ctx context.Context, doc domain.IngestDocument) (*driving.Classification, error) {
	result, hash, sig, err := e.classifier.Classify(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &driving.Classification{
		Result:      result,
		Action:      e.policy.Decide(result),
		ContentHash: hash,
		Signature:   sig,
	}, nil
}

// Commit applies a classification. The exact index insert is
// load-or-store: when two identical documents race, exactly one wins the
// insert and the loser is downgraded to an exact duplicate here, so
// concurrent batch ingestion never double-counts uniques.
func (e *Engine) Commit(
	ctx context.Context,
	doc domain.IngestDocument,
	c *driving.Classification,
) (*driving.CommitOutcome, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil classification", domain.ErrInvalidInput)
	}

	result := c.Result

	// Exact duplicates mutate nothing: the original record already owns
	// the hash, and an exact copy is not a separate version. A skip
	// verdict likewise discards the document without touching any index.
	if action := e.policy.Decide(result); result.Kind == domain.KindExact || action == domain.ActionSkip {
		return &driving.CommitOutcome{
			Result: result,
			Action: action,
		}, nil
	}

	owner, inserted := e.exactIndex.Insert(c.ContentHash, doc.ID)
	if !inserted {
		// Lost the commit race against an identical document.
		logger.Debug("commit race: %s downgraded to exact duplicate of %s", doc.ID, owner)
		result = domain.DuplicateResult{
			Kind:        domain.KindExact,
			OriginalID:  owner,
			Diagnostics: result.Diagnostics,
		}
		return &driving.CommitOutcome{
			Result: result,
			Action: e.policy.Decide(result),
		}, nil
	}

	outcome, err := e.commitRecord(ctx, doc, c, result)
	if err != nil {
		// Roll back so a failed or cancelled commit leaves no trace.
		e.exactIndex.Remove(c.ContentHash, doc.ID)
		return nil, err
	}
	return outcome, nil
}

// commitRecord stores the record, indexes the signature and updates the
// chain. On error the caller unwinds the exact index entry.
func (e *Engine) commitRecord(
	ctx context.Context,
	doc domain.IngestDocument,
	c *driving.Classification,
	result domain.DuplicateResult,
) (*driving.CommitOutcome, error) {
	rec := &domain.DocumentRecord{
		ID:          doc.ID,
		ContentHash: c.ContentHash,
		Signature:   c.Signature,
		EmbeddingID: doc.ID,
		IndexedAt:   time.Now().UTC(),
	}
	if err := e.records.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	if c.Signature != nil {
		if err := e.lshIndex.Insert(doc.ID, c.Signature); err != nil {
			e.rollbackRecord(ctx, doc.ID)
			return nil, fmt.Errorf("index signature: %w", err)
		}
	}

	chainUpdate, err := e.tracker.Update(ctx, doc.ID, result)
	if err != nil {
		if c.Signature != nil {
			if rmErr := e.lshIndex.Remove(doc.ID, c.Signature); rmErr != nil {
				logger.Warn("rollback: remove %s from lsh index: %v", doc.ID, rmErr)
			}
		}
		e.rollbackRecord(ctx, doc.ID)
		return nil, fmt.Errorf("update chain: %w", err)
	}

	return &driving.CommitOutcome{
		Result: result,
		Action: e.policy.Decide(result),
		Chain:  chainUpdate,
		Stored: true,
	}, nil
}

func (e *Engine) rollbackRecord(ctx context.Context, id string) {
	if err := e.records.Delete(ctx, id); err != nil {
		logger.Warn("rollback: delete record %s: %v", id, err)
	}
}

// Stats returns engine counters.
func (e *Engine) Stats(ctx context.Context) (*driving.EngineStats, error) {
	records, err := e.records.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	chains, err := e.chains.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chains: %w", err)
	}
	return &driving.EngineStats{
		Records:    records,
		Chains:     chains,
		HashCount:  e.exactIndex.Len(),
		LSHEntries: e.lshIndex.Len(),
		LSHBuckets: e.lshIndex.BucketCount(),
	}, nil
}

// Rebuild repopulates the in-memory exact and LSH indexes from the
// record store. Run once at startup before serving classifications; the
// persisted state keeps only records and signatures, not bucket layout.
func (e *Engine) Rebuild(ctx context.Context) error {
	records, err := e.records.List(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	for i := range records {
		rec := &records[i]
		e.exactIndex.Insert(rec.ContentHash, rec.ID)
		if rec.Signature != nil {
			if err := e.lshIndex.Insert(rec.ID, rec.Signature); err != nil {
				return fmt.Errorf("reindex %s: %w", rec.ID, err)
			}
		}
	}
	logger.Info("rebuilt indexes: %d records", len(records))
	return nil
}
