package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// This is the only error class that propagates to the caller as a
	// hard failure; everything else degrades onto the result.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTextTooShort indicates a document has fewer words than the
	// shingle size and cannot be sketched. Such documents bypass the
	// near-duplicate tier.
	ErrTextTooShort = errors.New("text too short to shingle")

	// ErrIndexUnavailable indicates the exact or LSH index store failed
	// to respond. The affected tier is skipped with a degradation flag.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrProbeTimeout indicates the external vector index was slow or
	// unreachable. The semantic tier result becomes unknown, not unique.
	ErrProbeTimeout = errors.New("semantic probe timed out")

	// ErrProbeUnavailable indicates no vector index is configured.
	ErrProbeUnavailable = errors.New("vector index unavailable")

	// ErrChainConflict indicates a chain merge was refused because the
	// chains' representatives do not meet the near threshold under a
	// direct pairwise check.
	ErrChainConflict = errors.New("chain merge refused: direct similarity check failed")

	// ErrChainInconsistency indicates chain state disagreed with the
	// record store. Repaired in place, never fatal.
	ErrChainInconsistency = errors.New("chain inconsistency")

	// ErrCommitted indicates a classification was already committed.
	ErrCommitted = errors.New("classification already committed")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. The semantic tier is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
