package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <decision-id>",
		Short: "Show a document's state and stage history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.GetByDecisionID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("no document for decision %q", args[0])
			}

			out := cmd.OutOrStdout()
			useColor := shouldColorize(out)

			fmt.Fprintf(out, "decision:  %s\n", doc.DecisionID)
			fmt.Fprintf(out, "id:        %d\n", doc.ID)
			fmt.Fprintf(out, "status:    %s\n", colorize(string(doc.Status), statusColor(string(doc.Status)), useColor))
			if doc.HaltedStage != "" {
				fmt.Fprintf(out, "halted at: %s\n", doc.HaltedStage)
			}
			if doc.ErrorMessage != "" {
				fmt.Fprintf(out, "error:     %s\n", doc.ErrorMessage)
			}
			if doc.SourceRecordID != "" {
				fmt.Fprintf(out, "record:    %s\n", doc.SourceRecordID)
			}
			if doc.SourceURL != "" {
				fmt.Fprintf(out, "url:       %s\n", doc.SourceURL)
			}
			if doc.ClaimedBy != "" {
				fmt.Fprintf(out, "claimed:   %s\n", doc.ClaimedBy)
			}
			fmt.Fprintf(out, "created:   %s\n", doc.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "updated:   %s\n", doc.UpdatedAt.Local().Format(time.RFC3339))

			history, err := doc.History()
			if err != nil {
				return fmt.Errorf("decode stage history: %w", err)
			}
			stages := doc.HistoryStages()
			if len(stages) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(stages))
			for _, name := range stages {
				record := history[name]
				finished := ""
				duration := ""
				if !record.FinishedAt.IsZero() {
					finished = record.FinishedAt.Local().Format(time.RFC3339)
					duration = record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond).String()
				}
				rows = append(rows, []string{
					name,
					record.StartedAt.Local().Format(time.RFC3339),
					finished,
					duration,
					record.Error,
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Started", "Finished", "Duration", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
