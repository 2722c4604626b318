package similarity

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

// mersennePrime is 2^61 - 1, the modulus of the permutation family.
const mersennePrime = (1 << 61) - 1

// permutationSeed fixes the permutation family across processes.
// Changing it invalidates every stored signature.
const permutationSeed = 0x5ec4a1c0ffee

// Sketcher produces fixed-length MinHash signatures from word shingles.
// A Sketcher is immutable after construction and safe for concurrent use.
type Sketcher struct {
	shingleSize int
	a, b        []uint64
}

// NewSketcher creates a sketcher with the given shingle size and number of
// hash permutations. Permutation coefficients are drawn from a fixed seed
// so signatures are stable across restarts.
func NewSketcher(shingleSize, permutations int) (*Sketcher, error) {
	if shingleSize <= 0 {
		return nil, fmt.Errorf("%w: shingle size must be positive", domain.ErrInvalidInput)
	}
	if permutations <= 0 {
		return nil, fmt.Errorf("%w: permutations must be positive", domain.ErrInvalidInput)
	}

	rng := rand.New(rand.NewSource(permutationSeed))
	a := make([]uint64, permutations)
	b := make([]uint64, permutations)
	for i := 0; i < permutations; i++ {
		// a must be non-zero for the permutation to be a bijection.
		a[i] = uint64(rng.Int63n(mersennePrime-1)) + 1
		b[i] = uint64(rng.Int63n(mersennePrime))
	}

	return &Sketcher{
		shingleSize: shingleSize,
		a:           a,
		b:           b,
	}, nil
}

// Permutations returns the signature length this sketcher produces.
func (s *Sketcher) Permutations() int {
	return len(s.a)
}

// ShingleSize returns the word n-gram length.
func (s *Sketcher) ShingleSize() int {
	return s.shingleSize
}

// Sketch computes the MinHash signature of normalized text.
// Returns domain.ErrTextTooShort when the text has fewer words than the
// shingle size; the caller routes such documents past the near tier.
func (s *Sketcher) Sketch(normalizedText string) (domain.MinHashSignature, error) {
	words := Tokenize(normalizedText)
	shingles := ShingleHashes(words, s.shingleSize)
	if len(shingles) == 0 {
		return nil, domain.ErrTextTooShort
	}

	sig := make(domain.MinHashSignature, len(s.a))
	for i := range sig {
		minVal := uint64(1<<63 - 1)
		for _, sh := range shingles {
			v := permute(sh, s.a[i], s.b[i])
			if v < minVal {
				minVal = v
			}
		}
		sig[i] = minVal
	}
	return sig, nil
}

// permute applies (a*x + b) mod p over the Mersenne prime p = 2^61 - 1.
// The 128-bit product is folded with shifts, avoiding a slow division.
func permute(x, a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, x%mersennePrime)
	v := (lo & mersennePrime) + (lo >> 61) + (hi << 3)
	v = (v & mersennePrime) + (v >> 61)
	v += b
	for v >= mersennePrime {
		v -= mersennePrime
	}
	return v
}

// EstimateJaccard returns the fraction of matching signature positions,
// an unbiased estimate of the Jaccard similarity of the underlying
// shingle sets. Returns 0 for signatures of different lengths.
func EstimateJaccard(a, b domain.MinHashSignature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
