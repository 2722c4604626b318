package driving

import (
	"context"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// ChainService exposes version chain inspection and the manual merge and
// split corrections.
type ChainService interface {
	// List returns all version chains.
	List(ctx context.Context) ([]domain.VersionChain, error)

	// Get retrieves one chain with its members.
	Get(ctx context.Context, chainID string) (*domain.VersionChain, error)

	// Merge combines two chains after a direct pairwise similarity check
	// between their representatives. A merge that fails the check returns
	// domain.ErrChainConflict; near-duplicate similarity is not assumed
	// to be transitive.
	Merge(ctx context.Context, dstID, srcID string) (*domain.VersionChain, error)

	// Split moves fromDocID and all later members into a new chain.
	Split(ctx context.Context, chainID, fromDocID string) (*domain.VersionChain, error)
}
