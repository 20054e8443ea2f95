package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lexpipe/internal/docstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline totals and per-document state",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total: %d  pending: %d  processing: %d  failed: %d  no content: %d  completed: %d\n\n",
				health.Total, health.Pending, health.Processing, health.Failed, health.NoContent, health.Completed)

			var statuses []docstore.Status
			if !showAll {
				statuses = activeStatuses()
			}
			docs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(out, "no matching documents")
				return nil
			}

			useColor := shouldColorize(out)
			rows := make([][]string, 0, len(docs))
			for _, doc := range docs {
				status := colorize(string(doc.Status), statusColor(string(doc.Status)), useColor)
				rows = append(rows, []string{
					strconv.FormatInt(doc.ID, 10),
					doc.DecisionID,
					status,
					doc.HaltedStage,
					truncate(doc.ErrorMessage, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Decision", "Status", "Halted Stage", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "Include completed documents")

	return cmd
}

// activeStatuses lists everything except completed.
func activeStatuses() []docstore.Status {
	all := docstore.AllStatuses()
	statuses := make([]docstore.Status, 0, len(all))
	for _, status := range all {
		if status == docstore.StatusCompleted {
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
