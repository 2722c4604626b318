package driven

import (
	"context"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// ChainStore persists version chains and keeps the latest-member
// invariant: every mutation leaves exactly one member of a non-empty
// chain with IsLatest set on its record. Implementations serialise
// concurrent mutations at chain granularity.
type ChainStore interface {
	// Get retrieves a chain by ID.
	Get(ctx context.Context, chainID string) (*domain.VersionChain, error)

	// GetByMember retrieves the chain containing a record, or
	// domain.ErrNotFound when the record is unchained.
	GetByMember(ctx context.Context, docID string) (*domain.VersionChain, error)

	// List returns all chains.
	List(ctx context.Context) ([]domain.VersionChain, error)

	// Create forms a new chain from the given members in order; the last
	// member becomes latest. Member records are updated in the same step.
	Create(ctx context.Context, memberIDs []string) (*domain.VersionChain, error)

	// Append adds a member to an existing chain and transfers latest
	// status to it.
	Append(ctx context.Context, chainID, docID string) error

	// Merge moves every member of src into dst ordered by IndexedAt and
	// deletes src. Latest status is recomputed for the merged chain.
	Merge(ctx context.Context, dstID, srcID string) error

	// Split moves fromDocID and all later members of a chain into a new
	// chain. Both resulting chains get a recomputed latest member; a
	// split that would empty the source chain is rejected.
	Split(ctx context.Context, chainID, fromDocID string) (*domain.VersionChain, error)

	// Count returns the number of chains.
	Count(ctx context.Context) (int, error)
}
