package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "gnntune",
	Short: "Resumable hyperparameter search for a GNN recommender",
	Long: `gnntune tunes the hyperparameters of a graph-neural-network
recommender with sequential Bayesian optimization. Every trial is one
full training-and-evaluation run against an external training service;
progress is checkpointed after each trial so a multi-day search can be
interrupted and resumed.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file can supply GNNTUNE_* defaults; missing is fine.
		_ = godotenv.Load()

		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// envDefault returns the environment value for key, or fallback when
// unset. Lets flags default from a .env file.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
