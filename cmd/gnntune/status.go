package main

import (
	"fmt"

	"github.com/gnntune/gnntune/internal/trial"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the training service is reachable",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&trainerURL, "trainer-url", "", "Training service URL (default $GNNTUNE_TRAINER_URL or http://localhost:9090)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	url := trainerURL
	if url == "" {
		url = envDefault("GNNTUNE_TRAINER_URL", "http://localhost:9090")
	}

	runner := trial.NewHTTPRunner(url)
	if err := runner.Healthy(cmd.Context()); err != nil {
		return fmt.Errorf("training service at %s is not healthy: %w", url, err)
	}

	fmt.Printf("Training service at %s is healthy.\n", url)
	return nil
}
