package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		recordID string
		url      string
	)

	cmd := &cobra.Command{
		Use:   "add <decision-id>...",
		Short: "Register decisions for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (recordID != "" || url != "") {
				return fmt.Errorf("--record-id and --url apply to a single decision")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, arg := range args {
				decisionID := strings.TrimSpace(arg)
				if decisionID == "" {
					continue
				}
				doc, err := store.Insert(cmd.Context(), decisionID, recordID, url)
				if err != nil {
					return fmt.Errorf("add %s: %w", decisionID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (id %d)\n", doc.DecisionID, doc.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record-id", "", "Source catalogue record identifier")
	cmd.Flags().StringVar(&url, "url", "", "Decision page URL")

	return cmd
}
