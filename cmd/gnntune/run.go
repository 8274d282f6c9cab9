package main

import (
	"fmt"
	"log/slog"

	"github.com/gnntune/gnntune/internal/opt"
	"github.com/gnntune/gnntune/internal/store"
	"github.com/gnntune/gnntune/internal/trial"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	trainerURL string

	trials int
	warmup int
	seed   int64

	numEpochs       int
	startEpoch      int
	patience        int
	edgeBatchSize   int
	nodeBatchSize   int
	remove          float64
	itemIDType      string
	duplicates      string
	neighborSampler string
	metricK         int

	interactionsPath string
	userFeaturesPath string
	itemFeaturesPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a fresh hyperparameter search",
	Long: `Starts a new search lineage: the first trial uses the
domain-chosen default hyperparameters, followed by random warm-up
trials, then acquisition-guided proposals. A checkpoint is written
after every trial.`,
	RunE: runSearch,
}

func init() {
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "Checkpoint directory (default $GNNTUNE_DATA_DIR or ./data)")
	runCmd.Flags().StringVar(&trainerURL, "trainer-url", "", "Training service URL (default $GNNTUNE_TRAINER_URL or http://localhost:9090)")

	runCmd.Flags().IntVar(&trials, "trials", 200, "Total trial budget for this lineage")
	runCmd.Flags().IntVar(&warmup, "warmup", 10, "Initial trials before the surrogate is trusted (includes the seeded default)")
	runCmd.Flags().Int64Var(&seed, "seed", 46, "Random seed for reproducible warm-up and proposals")

	runCmd.Flags().IntVar(&numEpochs, "num-epochs", 10, "Training epochs per trial")
	runCmd.Flags().IntVar(&startEpoch, "start-epoch", 0, "Start epoch")
	runCmd.Flags().IntVar(&patience, "patience", 3, "Early stopping patience")
	runCmd.Flags().IntVar(&edgeBatchSize, "edge-batch-size", 2048, "Edges per training/validation batch")
	runCmd.Flags().IntVar(&nodeBatchSize, "node-batch-size", 128, "Nodes per inference batch")
	runCmd.Flags().Float64Var(&remove, "remove", 0.95, "Fraction of interactions removed before training")
	runCmd.Flags().StringVar(&itemIDType, "item-id-type", trial.ItemIDSpecific, "Item identifier granularity: specific or generic")
	runCmd.Flags().StringVar(&duplicates, "duplicates", trial.DuplicatesKeepAll, "Duplicate handling: keep_all, keep_last or count_occurrence")
	runCmd.Flags().StringVar(&neighborSampler, "neighbor-sampler", "full", "Neighbor sampling: full or partial")
	runCmd.Flags().IntVar(&metricK, "k", 10, "Ranking metric cutoff")

	runCmd.Flags().StringVar(&interactionsPath, "interactions", "", "Interactions dataset handle")
	runCmd.Flags().StringVar(&userFeaturesPath, "user-features", "", "User features dataset handle")
	runCmd.Flags().StringVar(&itemFeaturesPath, "item-features", "", "Item features dataset handle")

	rootCmd.AddCommand(runCmd)
}

func fixedFromFlags() trial.FixedParams {
	return trial.FixedParams{
		NumEpochs:       numEpochs,
		StartEpoch:      startEpoch,
		Patience:        patience,
		EdgeBatchSize:   edgeBatchSize,
		NodeBatchSize:   nodeBatchSize,
		Remove:          remove,
		ItemIDType:      itemIDType,
		Duplicates:      duplicates,
		NeighborSampler: neighborSampler,
		K:               metricK,
	}
}

func handlesFromFlags() trial.DatasetHandles {
	return trial.DatasetHandles{
		InteractionsPath: interactionsPath,
		UserFeaturesPath: userFeaturesPath,
		ItemFeaturesPath: itemFeaturesPath,
	}
}

func resolvePaths() (string, string) {
	dir := dataDir
	if dir == "" {
		dir = envDefault("GNNTUNE_DATA_DIR", "./data")
	}
	url := trainerURL
	if url == "" {
		url = envDefault("GNNTUNE_TRAINER_URL", "http://localhost:9090")
	}
	return dir, url
}

func runSearch(cmd *cobra.Command, args []string) error {
	dir, url := resolvePaths()
	fixed := fixedFromFlags()
	handles := handlesFromFlags()

	searchSpace, err := trial.SearchSpace()
	if err != nil {
		return fmt.Errorf("failed to build search space: %w", err)
	}

	evaluator, err := trial.NewEvaluator(searchSpace, fixed, handles, trial.NewHTTPRunner(url))
	if err != nil {
		return err
	}

	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	cfg := opt.Config{MaxTrials: trials, Warmup: warmup, Seed: seed}
	loop, err := opt.NewSearch(searchSpace, evaluator.Evaluate, fsStore, cfg, trial.DefaultVector(), fixed, handles)
	if err != nil {
		return err
	}

	journal, err := store.OpenJournal(dir, loop.CheckpointID())
	if err != nil {
		return fmt.Errorf("failed to open trial journal: %w", err)
	}
	defer journal.Close()
	loop.SetJournal(journal)

	slog.Info("Starting search",
		"checkpoint", loop.CheckpointID(),
		"trials", trials,
		"warmup", warmup,
		"seed", seed,
		"trainer_url", url,
	)

	result, err := loop.Run(cmd.Context())
	reportResult(result)
	return err
}

func reportResult(result *opt.Result) {
	if result == nil {
		return
	}
	fmt.Printf("Checkpoint: %s\n", result.CheckpointID)
	fmt.Printf("Trials: %d total, %d this invocation\n", result.TotalTrials, result.NewTrials)
	if result.BestParams != nil {
		fmt.Printf("Best recall: %.4f\n", result.BestRecall)
		fmt.Printf("Best parameters: %s\n", result.BestParams.Describe())
	}
}
