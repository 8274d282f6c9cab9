package main

import (
	"fmt"
	"log/slog"

	"github.com/gnntune/gnntune/internal/opt"
	"github.com/gnntune/gnntune/internal/store"
	"github.com/gnntune/gnntune/internal/trial"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [checkpoint-id]",
	Short: "Resume an interrupted search from its checkpoint",
	Long: `Resumes a search lineage from a checkpoint artifact. With no
argument the most recent checkpoint is used. The surrogate model is
refit on the stored trial history and the search continues with
acquisition-guided proposals; no warm-up trials are repeated and the
trial budget counts from the already-evaluated total.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&dataDir, "data-dir", "", "Checkpoint directory (default $GNNTUNE_DATA_DIR or ./data)")
	resumeCmd.Flags().StringVar(&trainerURL, "trainer-url", "", "Training service URL (default $GNNTUNE_TRAINER_URL or http://localhost:9090)")
	resumeCmd.Flags().IntVar(&trials, "trials", 200, "Total trial budget for the lineage")
	resumeCmd.Flags().Int64Var(&seed, "seed", 46, "Random seed for proposal reproducibility")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	dir, url := resolvePaths()

	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	} else {
		id, err = fsStore.Latest()
		if err != nil {
			return fmt.Errorf("no checkpoint to resume from: %w", err)
		}
	}

	cp, err := fsStore.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint %s: %w", id, err)
	}

	searchSpace, err := trial.SearchSpace()
	if err != nil {
		return fmt.Errorf("failed to build search space: %w", err)
	}

	// Fixed parameters and dataset handles travel with the lineage;
	// resuming under different ones would poison the history.
	evaluator, err := trial.NewEvaluator(searchSpace, cp.Fixed, cp.Handles, trial.NewHTTPRunner(url))
	if err != nil {
		return err
	}

	cfg := opt.Config{MaxTrials: trials, Seed: seed}
	loop, err := opt.Resume(searchSpace, evaluator.Evaluate, fsStore, cfg, id)
	if err != nil {
		return err
	}

	journal, err := store.OpenJournal(dir, id)
	if err != nil {
		return fmt.Errorf("failed to open trial journal: %w", err)
	}
	defer journal.Close()
	loop.SetJournal(journal)

	slog.Info("Resuming search", "checkpoint", id, "trials", trials, "trainer_url", url)

	result, err := loop.Run(cmd.Context())
	reportResult(result)
	return err
}
