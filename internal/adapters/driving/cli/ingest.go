package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/logger"
	"github.com/custodia-labs/dedup-cli/internal/normalize"
)

var (
	ingestWorkers int
	ingestJSON    bool
	ingestEmbed   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Classify and index documents",
	Long: `Classifies each file against the indexed corpus and commits the result.
Directories are walked recursively. Exact duplicates and skip verdicts are
discarded; near duplicates join version chains per the configured policy.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 4, "concurrent ingestion workers")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	ingestCmd.Flags().BoolVar(&ingestEmbed, "embed", false, "compute embeddings for the semantic tier")
	rootCmd.AddCommand(ingestCmd)
}

// ingestResult is one file's outcome, shaped for both table and JSON output.
type ingestResult struct {
	Path     string  `json:"path"`
	ID       string  `json:"id,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	Action   string  `json:"action,omitempty"`
	Original string  `json:"original,omitempty"`
	Score    float64 `json:"score"`
	ChainID  string  `json:"chain_id,omitempty"`
	Stored   bool    `json:"stored"`
	Degraded bool    `json:"degraded"`
	Error    string  `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if dedupService == nil {
		return errors.New("dedup service not configured")
	}
	if ingestEmbed && embeddingService == nil {
		return errors.New("embedding service not configured")
	}
	if ingestWorkers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", ingestWorkers)
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Println("No files to ingest.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]ingestResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestWorkers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			res := ingestOne(gctx, path, ingestEmbed)
			results[i] = res
			if res.Error != "" {
				logger.Warn("ingest %s: %s", path, res.Error)
			}
			return nil
		})
	}

	// Per-file failures are reported in the results, not as a group error.
	if err := g.Wait(); err != nil {
		return err
	}

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printIngestTable(cmd, results)
	return nil
}

// ingestOne runs the full two-phase protocol for a single file.
func ingestOne(ctx context.Context, path string, embed bool) ingestResult {
	res := ingestResult{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	text := normalize.Text(raw, path)
	if text == "" {
		res.Error = "empty document after normalization"
		return res
	}

	doc := domain.IngestDocument{
		ID:             uuid.NewString(),
		NormalizedText: text,
	}

	if embed {
		embedding, err := embeddingService.Embed(ctx, text)
		if err != nil {
			// The engine degrades to the lower tiers without a vector;
			// an embedding failure must not block ingestion.
			logger.Warn("embed %s: %v", path, err)
		} else {
			doc.Embedding = embedding
		}
	}

	classification, err := dedupService.Classify(ctx, doc)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	outcome, err := dedupService.Commit(ctx, doc, classification)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if outcome.Stored && vectorIndex != nil && len(doc.Embedding) > 0 {
		if err := vectorIndex.Add(ctx, doc.ID, doc.Embedding); err != nil {
			logger.Warn("vector index add %s: %v", doc.ID, err)
		}
	}

	res.ID = doc.ID
	res.Kind = outcome.Result.Kind.String()
	res.Action = outcome.Action.String()
	res.Original = outcome.Result.OriginalID
	res.Score = outcome.Result.Score()
	res.ChainID = outcome.Chain.ChainID
	res.Stored = outcome.Stored
	res.Degraded = outcome.Result.Degraded()
	return res
}

// collectFiles expands the argument list, walking directories.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func printIngestTable(cmd *cobra.Command, results []ingestResult) {
	var stored, duplicates, flagged, failed int
	for i := range results {
		r := &results[i]
		switch {
		case r.Error != "":
			failed++
			cmd.Printf("  FAIL  %s: %s\n", r.Path, r.Error)
			continue
		case r.Stored:
			stored++
		default:
			duplicates++
		}
		if r.Action == domain.ActionFlag.String() {
			flagged++
		}

		line := fmt.Sprintf("  %-8s %s", r.Kind, r.Path)
		if r.Original != "" {
			line += fmt.Sprintf(" (matches %s, score %.3f)", r.Original, r.Score)
		}
		if r.ChainID != "" {
			line += fmt.Sprintf(" [chain %s]", r.ChainID)
		}
		if r.Degraded {
			line += " [degraded]"
		}
		cmd.Println(line)
	}

	cmd.Println()
	cmd.Printf("Ingested %d file(s): %d stored, %d duplicates discarded, %d flagged, %d failed\n",
		len(results), stored, duplicates, flagged, failed)
}
