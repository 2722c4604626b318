package domain

import (
	"fmt"
	"math"
	"time"
)

// Default engine parameters.
const (
	DefaultNearThreshold       = 0.85
	DefaultSemanticThreshold   = 0.92
	DefaultMinHashPermutations = 128
	DefaultShingleSize         = 3
	DefaultLSHBands            = 16
	DefaultLSHRowsPerBand      = 8
	DefaultSemanticK           = 8
	DefaultProbeTimeout        = 5 * time.Second
)

// EngineSettings holds all deduplication engine configuration.
// Thresholds are inclusive: a score exactly at a threshold counts as a match.
type EngineSettings struct {
	// NearThreshold is the minimum Jaccard estimate for a near duplicate.
	NearThreshold float64

	// SemanticThreshold is the minimum cosine similarity for a semantic duplicate.
	SemanticThreshold float64

	// MinHashPermutations is the signature length.
	MinHashPermutations int

	// ShingleSize is the word n-gram length for sketching.
	ShingleSize int

	// LSHBands and LSHRowsPerBand partition the signature for bucketing.
	// LSHBands * LSHRowsPerBand must equal MinHashPermutations. Both knobs
	// are exposed because the candidate-recall S-curve is coupled to them;
	// a single threshold knob cannot express the trade-off.
	LSHBands       int
	LSHRowsPerBand int

	// SemanticK is the neighbour count requested from the vector index.
	SemanticK int

	// ProbeTimeout bounds the single blocking call to the vector index.
	ProbeTimeout time.Duration

	// ProbeRateLimit caps semantic probes per second. Zero disables limiting.
	ProbeRateLimit float64

	// OnExact, OnNear, OnSemantic, OnUnique map classification kinds to
	// actions. Unknown always maps to flag; that default is not overridable
	// because an unclassifiable document must never be silently indexed.
	OnExact    Action
	OnNear     Action
	OnSemantic Action
	OnUnique   Action

	// AutoVersionMinJaccard gates the version action for near duplicates:
	// below this Jaccard a near match is flagged for review instead of
	// auto-versioned. Zero disables the gate.
	AutoVersionMinJaccard float64
}

// DefaultEngineSettings returns settings with the documented defaults.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		NearThreshold:       DefaultNearThreshold,
		SemanticThreshold:   DefaultSemanticThreshold,
		MinHashPermutations: DefaultMinHashPermutations,
		ShingleSize:         DefaultShingleSize,
		LSHBands:            DefaultLSHBands,
		LSHRowsPerBand:      DefaultLSHRowsPerBand,
		SemanticK:           DefaultSemanticK,
		ProbeTimeout:        DefaultProbeTimeout,
		OnExact:             ActionSkip,
		OnNear:              ActionVersion,
		OnSemantic:          ActionFlag,
		OnUnique:            ActionIndex,
		// AutoVersionMinJaccard stays zero: the gate is opt-in.
	}
}

// Validate checks internal consistency of the settings.
func (s EngineSettings) Validate() error {
	if s.NearThreshold < 0 || s.NearThreshold > 1 {
		return fmt.Errorf("%w: near threshold %v outside [0,1]", ErrInvalidInput, s.NearThreshold)
	}
	if s.SemanticThreshold < 0 || s.SemanticThreshold > 1 {
		return fmt.Errorf("%w: semantic threshold %v outside [0,1]", ErrInvalidInput, s.SemanticThreshold)
	}
	if s.MinHashPermutations <= 0 {
		return fmt.Errorf("%w: permutations must be positive", ErrInvalidInput)
	}
	if s.ShingleSize <= 0 {
		return fmt.Errorf("%w: shingle size must be positive", ErrInvalidInput)
	}
	if s.LSHBands <= 0 || s.LSHRowsPerBand <= 0 {
		return fmt.Errorf("%w: bands and rows must be positive", ErrInvalidInput)
	}
	if s.LSHBands*s.LSHRowsPerBand != s.MinHashPermutations {
		return fmt.Errorf("%w: bands (%d) * rows (%d) != permutations (%d)",
			ErrInvalidInput, s.LSHBands, s.LSHRowsPerBand, s.MinHashPermutations)
	}
	if s.SemanticK <= 0 {
		return fmt.Errorf("%w: semantic k must be positive", ErrInvalidInput)
	}
	for _, a := range []Action{s.OnExact, s.OnNear, s.OnSemantic, s.OnUnique} {
		if !a.IsValid() {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, a)
		}
	}
	if s.AutoVersionMinJaccard < 0 || s.AutoVersionMinJaccard > 1 {
		return fmt.Errorf("%w: auto-version gate %v outside [0,1]", ErrInvalidInput, s.AutoVersionMinJaccard)
	}
	return nil
}

// ActionFor returns the configured action for a classification kind.
// Unknown always flags.
func (s EngineSettings) ActionFor(kind DuplicateKind) Action {
	switch kind {
	case KindExact:
		return s.OnExact
	case KindNear:
		return s.OnNear
	case KindSemantic:
		return s.OnSemantic
	case KindUnique:
		return s.OnUnique
	default:
		return ActionFlag
	}
}

// LSHThreshold returns the Jaccard similarity at which the configured
// banding retrieves a candidate with probability 0.5, the midpoint of the
// LSH S-curve: (1/b)^(1/r).
func (s EngineSettings) LSHThreshold() float64 {
	return math.Pow(1.0/float64(s.LSHBands), 1.0/float64(s.LSHRowsPerBand))
}

// DeriveBanding picks bands and rows for the given permutation count whose
// S-curve midpoint sits closest to, without exceeding, the target threshold.
// Aiming slightly below the threshold favours recall; candidates are
// re-verified with exact signature comparison anyway.
func DeriveBanding(permutations int, target float64) (bands, rows int) {
	bands, rows = permutations, 1
	best := math.Inf(1)
	for b := 1; b <= permutations; b++ {
		if permutations%b != 0 {
			continue
		}
		r := permutations / b
		mid := math.Pow(1.0/float64(b), 1.0/float64(r))
		if mid > target {
			continue
		}
		if d := target - mid; d < best {
			best = d
			bands, rows = b, r
		}
	}
	return bands, rows
}
