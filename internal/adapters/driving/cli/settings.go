package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage engine settings",
	Long: `View and configure classification thresholds, LSH parameters and the
policy mapping from classification kinds to actions.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var (
	setNearThreshold     float64
	setSemanticThreshold float64
	setPermutations      int
	setShingleSize       int
	setBands             int
	setRows              int
	setSemanticK         int
	setProbeTimeout      time.Duration
	setProbeRate         float64
	setOnExact           string
	setOnNear            string
	setOnSemantic        string
	setOnUnique          string
	setAutoVersionMin    float64
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update settings",
	Long: `Updates the given settings and persists them. Threshold comparisons are
inclusive: a score exactly at a threshold counts as a match. Changing the
permutation count re-derives the LSH banding unless bands and rows are
set explicitly.

Note that signatures already indexed were sketched with the old
parameters; changing permutations or shingle size only affects documents
ingested afterwards.`,
	RunE: runSettingsSet,
}

func init() {
	f := settingsSetCmd.Flags()
	f.Float64Var(&setNearThreshold, "near-threshold", 0, "minimum Jaccard for a near duplicate")
	f.Float64Var(&setSemanticThreshold, "semantic-threshold", 0, "minimum cosine similarity for a semantic duplicate")
	f.IntVar(&setPermutations, "permutations", 0, "MinHash signature length")
	f.IntVar(&setShingleSize, "shingle-size", 0, "word n-gram length for sketching")
	f.IntVar(&setBands, "bands", 0, "LSH band count")
	f.IntVar(&setRows, "rows", 0, "LSH rows per band")
	f.IntVar(&setSemanticK, "k", 0, "neighbours requested from the vector index")
	f.DurationVar(&setProbeTimeout, "probe-timeout", 0, "semantic probe timeout")
	f.Float64Var(&setProbeRate, "probe-rate", 0, "semantic probes per second (0 = unlimited)")
	f.StringVar(&setOnExact, "on-exact", "", "action for exact duplicates (skip|version|flag|index)")
	f.StringVar(&setOnNear, "on-near", "", "action for near duplicates")
	f.StringVar(&setOnSemantic, "on-semantic", "", "action for semantic duplicates")
	f.StringVar(&setOnUnique, "on-unique", "", "action for unique documents")
	f.Float64Var(&setAutoVersionMin, "auto-version-min", 0, "minimum Jaccard to auto-version a near duplicate (0 = no gate)")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	s := configStore.Engine()

	cmd.Println("Engine Settings")
	cmd.Println("===============")
	cmd.Println()
	cmd.Println("[Thresholds]")
	cmd.Printf("  Near (Jaccard):    %.3f\n", s.NearThreshold)
	cmd.Printf("  Semantic (cosine): %.3f\n", s.SemanticThreshold)
	cmd.Println()
	cmd.Println("[Sketching]")
	cmd.Printf("  Permutations: %d\n", s.MinHashPermutations)
	cmd.Printf("  Shingle size: %d words\n", s.ShingleSize)
	cmd.Printf("  LSH banding:  %d bands x %d rows (S-curve midpoint %.3f)\n",
		s.LSHBands, s.LSHRowsPerBand, s.LSHThreshold())
	cmd.Println()
	cmd.Println("[Semantic probe]")
	cmd.Printf("  Neighbours (k): %d\n", s.SemanticK)
	cmd.Printf("  Timeout:        %s\n", s.ProbeTimeout)
	if s.ProbeRateLimit > 0 {
		cmd.Printf("  Rate limit:     %.1f/s\n", s.ProbeRateLimit)
	} else {
		cmd.Println("  Rate limit:     unlimited")
	}
	cmd.Println()
	cmd.Println("[Policy]")
	cmd.Printf("  Exact:    %s\n", s.OnExact)
	cmd.Printf("  Near:     %s\n", s.OnNear)
	cmd.Printf("  Semantic: %s\n", s.OnSemantic)
	cmd.Printf("  Unique:   %s\n", s.OnUnique)
	cmd.Printf("  Unknown:  %s (fixed)\n", domain.ActionFlag)
	if s.AutoVersionMinJaccard > 0 {
		cmd.Printf("  Auto-version gate: Jaccard >= %.3f\n", s.AutoVersionMinJaccard)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	s := configStore.Engine()
	flags := cmd.Flags()

	if flags.Changed("near-threshold") {
		s.NearThreshold = setNearThreshold
	}
	if flags.Changed("semantic-threshold") {
		s.SemanticThreshold = setSemanticThreshold
	}
	if flags.Changed("permutations") {
		s.MinHashPermutations = setPermutations
		if !flags.Changed("bands") && !flags.Changed("rows") {
			s.LSHBands, s.LSHRowsPerBand = domain.DeriveBanding(setPermutations, s.NearThreshold)
		}
	}
	if flags.Changed("shingle-size") {
		s.ShingleSize = setShingleSize
	}
	if flags.Changed("bands") {
		s.LSHBands = setBands
	}
	if flags.Changed("rows") {
		s.LSHRowsPerBand = setRows
	}
	if flags.Changed("k") {
		s.SemanticK = setSemanticK
	}
	if flags.Changed("probe-timeout") {
		s.ProbeTimeout = setProbeTimeout
	}
	if flags.Changed("probe-rate") {
		s.ProbeRateLimit = setProbeRate
	}
	if flags.Changed("on-exact") {
		s.OnExact = domain.Action(setOnExact)
	}
	if flags.Changed("on-near") {
		s.OnNear = domain.Action(setOnNear)
	}
	if flags.Changed("on-semantic") {
		s.OnSemantic = domain.Action(setOnSemantic)
	}
	if flags.Changed("on-unique") {
		s.OnUnique = domain.Action(setOnUnique)
	}
	if flags.Changed("auto-version-min") {
		s.AutoVersionMinJaccard = setAutoVersionMin
	}

	if err := configStore.SetEngine(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	cmd.Println("Settings updated. Restart running ingesters to apply.")
	return nil
}
