// Package driving defines the inbound ports of the deduplication engine:
// the interfaces the CLI (and any other caller) drives the core through.
package driving
