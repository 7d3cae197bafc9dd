package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/exploration-engine/internal/artifact"
)

var artifactStatus string

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List queued experiment artifacts",
	RunE:  runArtifactsList,
}

var artifactsApproveCmd = &cobra.Command{
	Use:   "approve <artifact-id>",
	Short: "Approve a queued artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideArtifact(args[0], true)
	},
}

var artifactsRejectCmd = &cobra.Command{
	Use:   "reject <artifact-id>",
	Short: "Reject a queued artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideArtifact(args[0], false)
	},
}

func init() {
	artifactsCmd.Flags().StringVar(&artifactStatus, "status", artifact.StatusQueued,
		"Filter by status (queued, approved, rejected, or empty for all)")
	artifactsCmd.AddCommand(artifactsApproveCmd, artifactsRejectCmd)
	rootCmd.AddCommand(artifactsCmd)
}

func openQueue() (*artifact.Queue, func(), error) {
	db, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	q, err := artifact.NewQueue(db.DB())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return q, func() { db.Close() }, nil
}

func runArtifactsList(cmd *cobra.Command, _ []string) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	items, err := q.List(artifactStatus)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tCREATED\tCONTENT")
	for _, a := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Kind, a.Status, a.CreatedAt.Format("2006-01-02 15:04"), truncate(a.Content, 50))
	}
	return w.Flush()
}

func decideArtifact(id string, approve bool) error {
	q, closeDB, err := openQueue()
	if err != nil {
		return err
	}
	defer closeDB()

	if approve {
		err = q.Approve(id)
	} else {
		err = q.Reject(id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("artifact %s %s\n", id, map[bool]string{true: "approved", false: "rejected"}[approve])
	return nil
}
