package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show arm posteriors and pull counts",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Emit JSON instead of a table")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	arms, err := db.LoadArms()
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(arms)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARM\tPULLS\tSUCCESSES\tAVG REWARD\tALPHA\tBETA")
	total := 0
	for _, a := range arms {
		total += a.Pulls
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3f\t%.1f\t%.1f\n",
			a.ArmID, a.Pulls, a.Successes, a.AvgReward(), a.Alpha, a.Beta)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d arms, %d total pulls\n", len(arms), total)
	return nil
}
