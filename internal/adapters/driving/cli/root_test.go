package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/vector/brute"
	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/services"
	"github.com/custodia-labs/dedup-cli/internal/index/exact"
	"github.com/custodia-labs/dedup-cli/internal/index/lsh"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

// setupTestServices wires a real engine over in-memory adapters so the
// commands exercise the full stack end to end.
func setupTestServices(t *testing.T) func() {
	t.Helper()

	settings := domain.DefaultEngineSettings()
	store := memory.NewStore()
	exactIdx := exact.New()

	lshIdx, err := lsh.New(lsh.Params{Bands: settings.LSHBands, Rows: settings.LSHRowsPerBand})
	require.NoError(t, err)

	sketcher, err := similarity.NewSketcher(settings.ShingleSize, settings.MinHashPermutations)
	require.NoError(t, err)

	vectors := brute.NewIndex()
	probe := services.NewSemanticProbe(vectors, settings.SemanticK, settings.ProbeRateLimit)

	classifier := services.NewClassifier(
		exactIdx, lshIdx, sketcher, store.RecordStore(), probe, nil, settings)
	policy := services.NewPolicyEngine(settings)
	tracker := services.NewChainTracker(store.ChainStore(), store.RecordStore(), settings)
	engine := services.NewEngine(
		classifier, policy, tracker, exactIdx, lshIdx, store.RecordStore(), store.ChainStore())

	cfgStore, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	SetServices(Services{
		Dedup:   engine,
		Chains:  tracker,
		Config:  cfgStore,
		Vectors: vectors,
	})

	return func() {
		SetServices(Services{})
	}
}

// execute runs the root command with the given args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTestFile creates a file with the given content in dir.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
