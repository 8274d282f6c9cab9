package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gnntune/gnntune/internal/store"
	"github.com/spf13/cobra"
)

var (
	checkpointDataDir string
	keepLast          int
	olderThanDays     int
	forceClean        bool
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage search checkpoints",
	Long: `Manage checkpoint artifacts: list lineages with their trial
counts and best recall, or clean out old artifacts.`,
}

var listCheckpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all checkpoint artifacts",
	RunE:  runListCheckpoints,
}

var cleanCheckpointsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old checkpoint artifacts",
	Long: `Deletes checkpoint artifacts by retention policy: keep only
the newest N lineages, or drop artifacts older than N days. The trial
journal of a deleted lineage is removed with it.`,
	RunE: runCleanCheckpoints,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(listCheckpointsCmd)
	checkpointsCmd.AddCommand(cleanCheckpointsCmd)

	checkpointsCmd.PersistentFlags().StringVar(&checkpointDataDir, "data-dir", "", "Checkpoint directory (default $GNNTUNE_DATA_DIR or ./data)")

	cleanCheckpointsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N checkpoints (0 = keep all)")
	cleanCheckpointsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete checkpoints older than N days (0 = no age limit)")
	cleanCheckpointsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func checkpointDir() string {
	if checkpointDataDir != "" {
		return checkpointDataDir
	}
	return envDefault("GNNTUNE_DATA_DIR", "./data")
}

func runListCheckpoints(cmd *cobra.Command, args []string) error {
	fsStore, err := store.NewFSStore(checkpointDir())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	infos, err := fsStore.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTRIALS\tBEST RECALL\tSIZE")
	fmt.Fprintln(w, "--\t-------\t------\t-----------\t----")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%s\n",
			info.ID,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Trials,
			info.BestRecall,
			formatBytes(info.SizeBytes),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal checkpoints: %d\n", len(infos))
	return nil
}

func runCleanCheckpoints(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	dir := checkpointDir()
	fsStore, err := store.NewFSStore(dir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	infos, err := fsStore.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No checkpoints to clean.")
		return nil
	}

	toDelete := selectForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Println("No checkpoints match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d checkpoint(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%d trials, %s)\n", info.ID, info.Trials, info.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := fsStore.Delete(info.ID); err != nil {
			slog.Error("Failed to delete checkpoint", "id", info.ID, "error", err)
			failed++
			continue
		}
		if err := store.DeleteJournal(dir, info.ID); err != nil {
			slog.Warn("Failed to delete journal", "id", info.ID, "error", err)
		}
		slog.Info("Deleted checkpoint", "id", info.ID)
		deleted++
	}

	fmt.Printf("\nDeleted %d checkpoint(s), %d failed.\n", deleted, failed)
	return nil
}

// selectForDeletion applies the retention policy. List order is
// newest first (the store guarantees it), so keep-last trims the
// tail.
func selectForDeletion(infos []store.CheckpointInfo, keepLast, olderThanDays int, now time.Time) []store.CheckpointInfo {
	marked := make(map[string]bool)
	var toDelete []store.CheckpointInfo

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
				marked[info.ID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		for _, info := range infos[keepLast:] {
			if !marked[info.ID] {
				toDelete = append(toDelete, info)
				marked[info.ID] = true
			}
		}
	}

	return toDelete
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
