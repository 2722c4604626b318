package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dedup-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/dedup-cli/internal/logger"
)

var watchEmbed bool

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Continuously ingest documents as they change",
	Long: `Watches a directory tree and classifies files as they are created or
modified. Hidden files are ignored. Deletions are logged only; record
retention is an external concern. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchEmbed, "embed", false, "compute embeddings for the semantic tier")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if dedupService == nil {
		return errors.New("dedup service not configured")
	}
	if watchEmbed && embeddingService == nil {
		return errors.New("embedding service not configured")
	}

	watcher, err := filesystem.NewWatcher(args[0])
	if err != nil {
		return err
	}
	defer watcher.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("watcher stopped: %v", err)
		}
	}()

	cmd.Printf("Watching %s for changes. Press Ctrl-C to stop.\n", args[0])
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			handleWatchChange(ctx, cmd, change)
		}
	}
}

func handleWatchChange(ctx context.Context, cmd *cobra.Command, change filesystem.Change) {
	if change.Type == filesystem.ChangeDeleted {
		logger.Info("deleted: %s (records retained)", change.Path)
		return
	}

	res := ingestOne(ctx, change.Path, watchEmbed)
	if res.Error != "" {
		cmd.Printf("  FAIL  %s: %s\n", res.Path, res.Error)
		return
	}

	line := fmt.Sprintf("  %-8s %s", res.Kind, res.Path)
	if res.Original != "" {
		line += fmt.Sprintf(" (matches %s, score %.3f)", res.Original, res.Score)
	}
	if res.ChainID != "" {
		line += fmt.Sprintf(" [chain %s]", res.ChainID)
	}
	if res.Degraded {
		line += " [degraded]"
	}
	cmd.Println(line)
}
