package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexpipe/internal/stage"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var retryAll bool

	cmd := &cobra.Command{
		Use:   "retry [decision-id...]",
		Short: "Return failed documents to their halted stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !retryAll && len(args) == 0 {
				return fmt.Errorf("pass decision identifiers or --all")
			}
			if retryAll && len(args) > 0 {
				return fmt.Errorf("--all cannot be combined with decision identifiers")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var ids []int64
			for _, arg := range args {
				doc, err := store.GetByDecisionID(cmd.Context(), arg)
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("no document for decision %q", arg)
				}
				ids = append(ids, doc.ID)
			}

			updated, err := store.RetryFailed(cmd.Context(), stage.RetryTargets(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d document(s) for retry\n", updated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&retryAll, "all", false, "Retry every failed document")

	return cmd
}
