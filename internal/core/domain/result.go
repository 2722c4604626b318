package domain

const unknownDescription = "Unknown"

// DuplicateKind identifies which tier of the classifier matched.
type DuplicateKind string

// Classification outcomes.
const (
	// KindExact means the content hash matched an existing record.
	KindExact DuplicateKind = "exact"

	// KindNear means the MinHash Jaccard estimate met the near threshold.
	KindNear DuplicateKind = "near"

	// KindSemantic means embedding similarity met the semantic threshold.
	KindSemantic DuplicateKind = "semantic"

	// KindUnique means no tier matched.
	KindUnique DuplicateKind = "unique"

	// KindUnknown means the semantic tier was unavailable and the lower
	// tiers found nothing. Distinct from unique: the document could not
	// be fully classified and is conservatively flagged.
	KindUnknown DuplicateKind = "unknown"
)

// IsValid returns true if the kind is recognised.
func (k DuplicateKind) IsValid() bool {
	switch k {
	case KindExact, KindNear, KindSemantic, KindUnique, KindUnknown:
		return true
	default:
		return false
	}
}

// IsDuplicate returns true if the kind names a detected duplicate.
func (k DuplicateKind) IsDuplicate() bool {
	return k == KindExact || k == KindNear || k == KindSemantic
}

// String returns the string representation.
func (k DuplicateKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the kind.
func (k DuplicateKind) Description() string {
	switch k {
	case KindExact:
		return "Exact duplicate (identical content hash)"
	case KindNear:
		return "Near duplicate (edited variant)"
	case KindSemantic:
		return "Semantic duplicate (paraphrase or re-export)"
	case KindUnique:
		return "Unique content"
	case KindUnknown:
		return "Classification incomplete"
	default:
		return unknownDescription
	}
}

// Degradation records a tier that could not run at full fidelity.
// Degradations ride on the result so callers and observability can alert
// without blocking ingestion.
type Degradation struct {
	// Tier is the affected tier: "near" or "semantic".
	Tier string

	// Reason is a short human-readable cause.
	Reason string
}

// DuplicateResult is the classifier's output. Exactly one kind applies;
// OriginalID and the score fields are set for duplicate kinds only.
type DuplicateResult struct {
	// Kind is the classification outcome.
	Kind DuplicateKind

	// OriginalID is the matched record for exact/near/semantic kinds.
	OriginalID string

	// Jaccard is the estimated set similarity, set when Kind is near.
	Jaccard float64

	// Cosine is the embedding similarity, set when Kind is semantic.
	Cosine float64

	// Diagnostics lists tiers that degraded during classification.
	Diagnostics []Degradation
}

// Score returns the similarity score relevant to the kind, 1.0 for exact
// and 0.0 otherwise.
func (r DuplicateResult) Score() float64 {
	switch r.Kind {
	case KindExact:
		return 1.0
	case KindNear:
		return r.Jaccard
	case KindSemantic:
		return r.Cosine
	default:
		return 0.0
	}
}

// Degraded returns true if any tier ran in degraded mode.
func (r DuplicateResult) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// Action is the policy engine's verdict for a classified document.
type Action string

// Available actions.
const (
	// ActionSkip discards the document without indexing.
	ActionSkip Action = "skip"

	// ActionVersion indexes the document as a new version in a chain.
	ActionVersion Action = "version"

	// ActionFlag indexes the document and marks it for human review.
	ActionFlag Action = "flag"

	// ActionIndex indexes the document normally.
	ActionIndex Action = "index"
)

// IsValid returns true if the action is recognised.
func (a Action) IsValid() bool {
	switch a {
	case ActionSkip, ActionVersion, ActionFlag, ActionIndex:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// Description returns a human-readable description of the action.
func (a Action) Description() string {
	switch a {
	case ActionSkip:
		return "Skip (discard duplicate)"
	case ActionVersion:
		return "Version (append to chain)"
	case ActionFlag:
		return "Flag (index and queue for review)"
	case ActionIndex:
		return "Index normally"
	default:
		return unknownDescription
	}
}

// ChainUpdate describes what the version chain tracker did for a document.
type ChainUpdate struct {
	// ChainID is the affected chain, empty when no update occurred.
	ChainID string

	// Created is true when a new chain was formed.
	Created bool

	// PreviousLatest is the member that lost latest status, if any.
	PreviousLatest string

	// Repaired is true when the matched original had vanished and the
	// update degraded to a single-member chain.
	Repaired bool
}
