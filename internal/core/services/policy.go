package services

import "github.com/custodia-labs/dedup-cli/internal/core/domain"

// PolicyEngine maps a classification to an action. It holds no state
// beyond its settings: a pure lookup plus an optional score gate for
// near duplicates.
type PolicyEngine struct {
	settings domain.EngineSettings
}

// NewPolicyEngine creates a policy engine with the given settings.
func NewPolicyEngine(settings domain.EngineSettings) *PolicyEngine {
	return &PolicyEngine{settings: settings}
}

// Decide returns the action for a result. Unknown results always flag;
// a document that could not be fully classified must reach a human or a
// reconciliation job, never the regular index path unmarked. Near
// duplicates below the auto-version gate are downgraded from version to
// flag so ambiguous matches get review instead of silently extending a
// chain.
func (p *PolicyEngine) Decide(result domain.DuplicateResult) domain.Action {
	action := p.settings.ActionFor(result.Kind)

	if result.Kind == domain.KindNear &&
		action == domain.ActionVersion &&
		p.settings.AutoVersionMinJaccard > 0 &&
		result.Jaccard < p.settings.AutoVersionMinJaccard {
		return domain.ActionFlag
	}

	return action
}
