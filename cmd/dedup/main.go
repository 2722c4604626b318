// Command dedup is the document deduplication and version-chain CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driven/vector/brute"
	"github.com/custodia-labs/dedup-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/dedup-cli/internal/core/services"
	"github.com/custodia-labs/dedup-cli/internal/index/exact"
	"github.com/custodia-labs/dedup-cli/internal/index/lsh"
	"github.com/custodia-labs/dedup-cli/internal/similarity"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore(os.Getenv("DEDUP_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	settings := configStore.Engine()
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	store, err := sqlite.NewStore(configStore.DataDir())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	exactIdx := exact.New()
	lshIdx, err := lsh.New(lsh.Params{Bands: settings.LSHBands, Rows: settings.LSHRowsPerBand})
	if err != nil {
		return fmt.Errorf("lsh index: %w", err)
	}
	sketcher, err := similarity.NewSketcher(settings.ShingleSize, settings.MinHashPermutations)
	if err != nil {
		return fmt.Errorf("sketcher: %w", err)
	}

	// The in-process vector index holds only embeddings added during this
	// run; a deployment with a persistent ANN service swaps it out here.
	vectors := brute.NewIndex()
	defer vectors.Close()

	probe := services.NewSemanticProbe(vectors, settings.SemanticK, settings.ProbeRateLimit)
	classifier := services.NewClassifier(
		exactIdx, lshIdx, sketcher, store.RecordStore(), probe, nil, settings)
	policy := services.NewPolicyEngine(settings)
	tracker := services.NewChainTracker(store.ChainStore(), store.RecordStore(), settings)
	engine := services.NewEngine(
		classifier, policy, tracker, exactIdx, lshIdx, store.RecordStore(), store.ChainStore())

	// The exact and LSH indexes live in memory; replay them from the
	// persisted records before serving classifications.
	if err := engine.Rebuild(context.Background()); err != nil {
		return fmt.Errorf("rebuild indexes: %w", err)
	}

	embedder := ollama.NewEmbeddingService(ollama.Config{
		BaseURL: os.Getenv("DEDUP_OLLAMA_URL"),
		Model:   os.Getenv("DEDUP_EMBEDDING_MODEL"),
	})
	defer embedder.Close()

	cli.SetServices(cli.Services{
		Dedup:     engine,
		Chains:    tracker,
		Config:    configStore,
		Embedding: embedder,
		Vectors:   vectors,
	})

	return cli.Execute()
}
