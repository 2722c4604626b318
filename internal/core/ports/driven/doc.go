// Package driven defines the outbound ports of the deduplication engine:
// interfaces the core depends on, implemented by storage, vector-index,
// embedding and config adapters.
package driven
