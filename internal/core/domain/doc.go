// Package domain contains the core types of the deduplication engine:
// document records, fingerprints, version chains, classification results
// and engine settings. It has no dependencies on adapters or services.
package domain
