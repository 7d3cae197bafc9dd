package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/exploration-engine/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.yaml>",
	Short: "Benchmark bandit strategies against a fixture",
	Long: `Replay a simulated arm fixture under every bandit strategy and
compare cumulative reward. Use this to sanity-check a policy change before
deploying it.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	fixture, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}

	outcomes, err := replay.Run(fixture, nil)
	if err != nil {
		return err
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].CumulativeReward > outcomes[j].CumulativeReward
	})

	if fixture.Description != "" {
		fmt.Printf("%s (%d rounds, %d arms)\n\n", fixture.Description, fixture.Rounds, len(fixture.Arms))
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tCUM. REWARD\tBEST-ARM SHARE")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%.2f\t%.0f%%\n", o.Strategy, o.CumulativeReward, o.BestArmShare*100)
	}
	return w.Flush()
}
