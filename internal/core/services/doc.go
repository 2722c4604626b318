// Package services implements the deduplication engine's core logic:
// the three-tier classifier, the semantic probe, the version chain
// tracker, the policy engine, and the two-phase engine facade that
// callers drive through the driving ports.
package services
