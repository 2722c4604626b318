package similarity

import (
	"crypto/sha256"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// HashContent computes the exact-tier fingerprint of normalized text.
// Deterministic and collision-free for practical purposes; the caller is
// responsible for normalization having already been applied.
func HashContent(normalizedText string) domain.Hash256 {
	return domain.Hash256(sha256.Sum256([]byte(normalizedText)))
}
