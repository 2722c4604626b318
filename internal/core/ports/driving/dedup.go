package driving

import (
	"context"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// Classification carries a classify result plus the artifacts commit
// needs, so the two-phase protocol never recomputes fingerprints.
type Classification struct {
	// Result is the classifier's verdict.
	Result domain.DuplicateResult

	// Action is the policy engine's verdict for the result.
	Action domain.Action

	// ContentHash is the tier-1 fingerprint computed during classify.
	ContentHash domain.Hash256

	// Signature is the tier-2 sketch. Nil for too-short documents.
	Signature domain.MinHashSignature
}

// CommitOutcome reports what commit actually did. The result inside may
// differ from the classification passed in: a unique document that lost
// a commit race against an identical concurrent document comes back
// downgraded to exact.
type CommitOutcome struct {
	// Result is the final classification after commit-time re-checks.
	Result domain.DuplicateResult

	// Action is the final action for the final result.
	Action domain.Action

	// Chain describes the version chain update, if any.
	Chain domain.ChainUpdate

	// Stored is true when a document record was created.
	Stored bool
}

// EngineStats summarises engine state for observability.
type EngineStats struct {
	Records    int
	Chains     int
	HashCount  int
	LSHEntries int
	LSHBuckets int
}

// DedupService is the engine's entry point. Classify is read-only;
// Commit mutates the indexes and stores. Callers that cancel between the
// two phases leave no trace in engine state. Both phases are safe under
// concurrent invocation from a batch ingestion worker pool.
type DedupService interface {
	// Classify runs the three tiers in order and returns the result plus
	// commit artifacts. Only domain.ErrInvalidInput is a hard failure;
	// degraded tiers are reported on the result's diagnostics.
	Classify(ctx context.Context, doc domain.IngestDocument) (*Classification, error)

	// Commit applies a classification: records the document, updates the
	// exact and LSH indexes and the version chains per the action.
	Commit(ctx context.Context, doc domain.IngestDocument, c *Classification) (*CommitOutcome, error)

	// Stats returns engine counters.
	Stats(ctx context.Context) (*EngineStats, error)
}
