package similarity

import "github.com/custodia-labs/dedup-cli/internal/core/domain"

// Candidate pairs a record ID with its verified Jaccard estimate.
type Candidate struct {
	ID      string
	Jaccard float64
}

// TieBreak selects the winning candidate when several clear the near
// threshold. It is a named strategy rather than inline comparison logic
// so deployments can swap it (e.g. oldest-wins for stable chain roots)
// without touching the classifier.
type TieBreak func(candidates []Candidate) (Candidate, bool)

// HighestJaccard returns the candidate with the greatest Jaccard estimate.
// Ties on the score fall back to the lexicographically smallest ID so the
// outcome is deterministic under concurrent ingestion.
func HighestJaccard(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Jaccard > best.Jaccard || (c.Jaccard == best.Jaccard && c.ID < best.ID) {
			best = c
		}
	}
	return best, true
}

var _ TieBreak = HighestJaccard

// AboveThreshold filters candidates to those meeting the inclusive
// threshold.
func AboveThreshold(candidates []Candidate, threshold float64) []Candidate {
	var kept []Candidate
	for _, c := range candidates {
		if c.Jaccard >= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}

// CandidateFromRecord scores a stored record against a query signature.
func CandidateFromRecord(query domain.MinHashSignature, rec *domain.DocumentRecord) Candidate {
	return Candidate{ID: rec.ID, Jaccard: EstimateJaccard(query, rec.Signature)}
}
