package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

var chainsJSON bool

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "Inspect and correct version chains",
	RunE:  runChainsList,
}

var chainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all version chains",
	RunE:  runChainsList,
}

var chainsShowCmd = &cobra.Command{
	Use:   "show [chain-id]",
	Short: "Show one chain and its members",
	Args:  cobra.ExactArgs(1),
	RunE:  runChainsShow,
}

var chainsMergeCmd = &cobra.Command{
	Use:   "merge [dst-chain-id] [src-chain-id]",
	Short: "Merge two chains that track the same document",
	Long: `Merges the source chain into the destination chain. The merge is refused
when the chains' latest members are not similar enough to plausibly be
the same document; similarity between chains is checked directly, never
assumed from shared neighbours.`,
	Args: cobra.ExactArgs(2),
	RunE: runChainsMerge,
}

var chainsSplitCmd = &cobra.Command{
	Use:   "split [chain-id] [member-doc-id]",
	Short: "Split a chain at a member",
	Long: `Moves the given member and every later member into a new chain. Used to
correct a false-positive match that glued two unrelated documents
together.`,
	Args: cobra.ExactArgs(2),
	RunE: runChainsSplit,
}

func init() {
	chainsCmd.PersistentFlags().BoolVar(&chainsJSON, "json", false, "output as JSON")
	chainsCmd.AddCommand(chainsListCmd)
	chainsCmd.AddCommand(chainsShowCmd)
	chainsCmd.AddCommand(chainsMergeCmd)
	chainsCmd.AddCommand(chainsSplitCmd)
	rootCmd.AddCommand(chainsCmd)
}

func chainsContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runChainsList(cmd *cobra.Command, _ []string) error {
	if chainService == nil {
		return errors.New("chain service not configured")
	}

	chains, err := chainService.List(chainsContext(cmd))
	if err != nil {
		return fmt.Errorf("list chains: %w", err)
	}

	if chainsJSON {
		return outputChainsJSON(cmd, chains)
	}

	if len(chains) == 0 {
		cmd.Println("No version chains.")
		return nil
	}

	for i := range chains {
		c := &chains[i]
		cmd.Printf("  %s  %d member(s), latest %s, updated %s\n",
			c.ID, len(c.MemberIDs), c.Latest(), c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runChainsShow(cmd *cobra.Command, args []string) error {
	if chainService == nil {
		return errors.New("chain service not configured")
	}

	chain, err := chainService.Get(chainsContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("get chain: %w", err)
	}

	if chainsJSON {
		return outputChainsJSON(cmd, []domain.VersionChain{*chain})
	}

	printChain(cmd, chain)
	return nil
}

func runChainsMerge(cmd *cobra.Command, args []string) error {
	if chainService == nil {
		return errors.New("chain service not configured")
	}

	merged, err := chainService.Merge(chainsContext(cmd), args[0], args[1])
	if err != nil {
		if errors.Is(err, domain.ErrChainConflict) {
			return fmt.Errorf("merge refused: chains are not similar enough: %w", err)
		}
		return fmt.Errorf("merge chains: %w", err)
	}

	if chainsJSON {
		return outputChainsJSON(cmd, []domain.VersionChain{*merged})
	}

	cmd.Printf("Merged %s into %s.\n", args[1], args[0])
	printChain(cmd, merged)
	return nil
}

func runChainsSplit(cmd *cobra.Command, args []string) error {
	if chainService == nil {
		return errors.New("chain service not configured")
	}

	tail, err := chainService.Split(chainsContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("split chain: %w", err)
	}

	if chainsJSON {
		return outputChainsJSON(cmd, []domain.VersionChain{*tail})
	}

	cmd.Printf("Split %s at %s into new chain %s.\n", args[0], args[1], tail.ID)
	printChain(cmd, tail)
	return nil
}

func printChain(cmd *cobra.Command, chain *domain.VersionChain) {
	cmd.Printf("Chain %s\n", chain.ID)
	cmd.Printf("  Created: %s\n", chain.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated: %s\n", chain.UpdatedAt.Format("2006-01-02 15:04:05"))
	cmd.Println("  Members (oldest first):")
	for i, id := range chain.MemberIDs {
		marker := " "
		if i == len(chain.MemberIDs)-1 {
			marker = "*" // latest
		}
		cmd.Printf("    %s %s\n", marker, id)
	}
}

func outputChainsJSON(cmd *cobra.Command, chains []domain.VersionChain) error {
	data, err := json.MarshalIndent(chains, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chains: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
