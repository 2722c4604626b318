// Package cli implements the dedup command-line interface. Commands are
// thin: they parse flags, call the driving ports and format output. All
// engine behaviour lives in the core services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driving"
	"github.com/custodia-labs/dedup-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Services used by the commands, injected from main before Execute.
var (
	dedupService     driving.DedupService
	chainService     driving.ChainService
	configStore      driven.ConfigStore
	embeddingService driven.EmbeddingService
	vectorIndex      driven.VectorIndex
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Detect duplicate and versioned documents at ingestion time",
	Long: `dedup classifies documents against an indexed corpus using three tiers:
exact content hashing, MinHash/LSH near-duplicate detection, and semantic
similarity over embeddings. Detected versions of the same document are
grouped into version chains.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Services bundles everything the commands need.
type Services struct {
	Dedup     driving.DedupService
	Chains    driving.ChainService
	Config    driven.ConfigStore
	Embedding driven.EmbeddingService
	Vectors   driven.VectorIndex
}

// SetServices injects service implementations. Call before Execute.
func SetServices(s Services) {
	dedupService = s.Dedup
	chainService = s.Chains
	configStore = s.Config
	embeddingService = s.Embedding
	vectorIndex = s.Vectors
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
