package domain

import (
	"encoding/hex"
	"time"
)

// Hash256 is a 256-bit content fingerprint of normalized document text.
// Collisions are treated as impossible.
type Hash256 [32]byte

// String returns the hex encoding of the hash.
func (h Hash256) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash is unset.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

// ParseHash256 decodes a hex string into a Hash256.
func ParseHash256(s string) (Hash256, error) {
	var h Hash256
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, ErrInvalidInput
	}
	copy(h[:], b)
	return h, nil
}

// MinHashSignature is a fixed-length MinHash sketch of a document's
// word-shingle set. Position i holds the minimum value of the i-th hash
// permutation over all shingles. The fraction of matching positions
// between two signatures estimates the Jaccard similarity of the
// underlying shingle sets.
//
// A nil signature marks a document too short to shingle; such documents
// skip the near-duplicate tier entirely.
type MinHashSignature []uint64

// Equal reports whether two signatures are identical.
func (s MinHashSignature) Equal(other MinHashSignature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// DocumentRecord is one entry per indexed document version.
// The engine mutates only ChainID and IsLatest after creation;
// deletion is an external data-retention concern.
type DocumentRecord struct {
	// ID is assigned by the ingestion pipeline, not this engine.
	ID string

	// ContentHash is the exact fingerprint of the normalized text.
	ContentHash Hash256

	// Signature is the MinHash sketch. Nil for degenerate (too-short) documents.
	Signature MinHashSignature

	// EmbeddingID references the vector held by the external vector index.
	EmbeddingID string

	// IndexedAt is when the record was created.
	IndexedAt time.Time

	// ChainID links to a VersionChain. Empty means not yet chained.
	ChainID string

	// IsLatest is true for exactly one record per non-empty ChainID.
	IsLatest bool
}

// VersionChain is an ordered-by-time set of document records believed to
// represent the same evolving document. Insertion order is temporal order.
// Chains never close; future near or semantic matches may extend them.
type VersionChain struct {
	// ID is the unique chain identifier.
	ID string

	// MemberIDs holds record IDs in insertion order.
	MemberIDs []string

	// CreatedAt is when the chain was first formed.
	CreatedAt time.Time

	// UpdatedAt is when the chain last gained or lost a member.
	UpdatedAt time.Time
}

// Latest returns the ID of the newest member, or "" for an empty chain.
func (c *VersionChain) Latest() string {
	if len(c.MemberIDs) == 0 {
		return ""
	}
	return c.MemberIDs[len(c.MemberIDs)-1]
}

// Contains reports whether the chain holds the given record ID.
func (c *VersionChain) Contains(id string) bool {
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// IngestDocument is the engine's input: an already-normalized document
// with a precomputed embedding. The engine never re-normalizes text and
// never computes embeddings itself.
type IngestDocument struct {
	// ID is the identifier assigned by the ingestion pipeline.
	ID string

	// NormalizedText has whitespace/encoding normalization already applied.
	NormalizedText string

	// Embedding is the precomputed vector. May be nil when the embedding
	// pipeline is unavailable; the semantic tier then degrades.
	Embedding []float32
}
