package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/normalize"
)

var (
	classifyJSON  bool
	classifyEmbed bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [path]",
	Short: "Classify a document without committing it",
	Long: `Runs the read-only classification tiers against a file and reports the
verdict and the action the policy would take. Nothing is stored or
indexed; this is a dry run of ingest.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output result as JSON")
	classifyCmd.Flags().BoolVar(&classifyEmbed, "embed", false, "compute an embedding for the semantic tier")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if dedupService == nil {
		return errors.New("dedup service not configured")
	}
	if classifyEmbed && embeddingService == nil {
		return errors.New("embedding service not configured")
	}

	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	text := normalize.Text(raw, path)
	if text == "" {
		return fmt.Errorf("%w: empty document after normalization", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doc := domain.IngestDocument{
		ID:             "classify-dry-run",
		NormalizedText: text,
	}
	if classifyEmbed {
		embedding, err := embeddingService.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		doc.Embedding = embedding
	}

	c, err := dedupService.Classify(ctx, doc)
	if err != nil {
		return fmt.Errorf("classify failed: %w", err)
	}

	if classifyJSON {
		out := ingestResult{
			Path:     path,
			Kind:     c.Result.Kind.String(),
			Action:   c.Action.String(),
			Original: c.Result.OriginalID,
			Score:    c.Result.Score(),
			Degraded: c.Result.Degraded(),
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Kind:   %s\n", c.Result.Kind.Description())
	cmd.Printf("Action: %s\n", c.Action.Description())
	if c.Result.OriginalID != "" {
		cmd.Printf("Match:  %s (score %.3f)\n", c.Result.OriginalID, c.Result.Score())
	}
	for _, d := range c.Result.Diagnostics {
		cmd.Printf("Degraded tier %s: %s\n", d.Tier, d.Reason)
	}
	return nil
}
