package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/exploration-engine/internal/store"
)

var dbPath string

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "explorectl",
	Short: "Inspect and steer the exploration engine",
	Long: `explorectl reads the exploration engine's SQLite store and replay
fixtures. It works against the same database the daemon writes, so it can
run on a live deployment or a copied snapshot.

Core commands:
  stats      Arm posteriors and pull counts
  history    Recent finished experiments
  events     Recent telemetry events
  artifacts  List and decide queued artifacts
  replay     Benchmark bandit strategies against a fixture`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "Path to the engine database")
}

func defaultDBPath() string {
	if v := os.Getenv("EXPLORE_DB"); v != "" {
		return v
	}
	return "exploration.db"
}

// openStore opens the engine database for a subcommand.
func openStore() (*store.Store, error) {
	return store.Open(dbPath)
}
