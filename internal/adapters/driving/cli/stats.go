package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine counters",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if dedupService == nil {
		return errors.New("dedup service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := dedupService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Engine State")
	cmd.Println("============")
	cmd.Printf("  Records:       %d\n", stats.Records)
	cmd.Printf("  Chains:        %d\n", stats.Chains)
	cmd.Printf("  Exact hashes:  %d\n", stats.HashCount)
	cmd.Printf("  LSH entries:   %d\n", stats.LSHEntries)
	cmd.Printf("  LSH buckets:   %d\n", stats.LSHBuckets)
	return nil
}
