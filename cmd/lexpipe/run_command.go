package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lexpipe/internal/pipeline"
	"lexpipe/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		stagesFlag    string
		idsFlag       []string
		haltOnError   bool
		stageDelaySec int
		docDelaySec   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run pipeline stages for documents in one pass",
		Long: `Run drives each document through the requested stages, one document at
a time. Documents resume wherever they previously stopped; completed and
no-content documents are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			descriptors, err := stage.ParseRange(stagesFlag)
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			logger := ctx.buildLogger()
			handlers, err := pipeline.NewHandlerSet(cfg, logger)
			if err != nil {
				return err
			}

			stageDelay := cfg.StageDelay()
			if cmd.Flags().Changed("stage-delay") {
				stageDelay = time.Duration(stageDelaySec) * time.Second
			}
			docDelay := cfg.DocumentDelay()
			if cmd.Flags().Changed("doc-delay") {
				docDelay = time.Duration(docDelaySec) * time.Second
			}
			haltFlag := haltOnError || cfg.Workflow.HaltOnError

			runner := pipeline.NewRunner(cfg, store, handlers, logger)
			summary, err := runner.Run(cmd.Context(), pipeline.RunOptions{
				Stages:        descriptors,
				DecisionIDs:   idsFlag,
				HaltOnError:   haltFlag,
				StageDelay:    stageDelay,
				DocumentDelay: docDelay,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "documents: %d  succeeded: %d  empty: %d  errored: %d  skipped: %d\n",
				summary.Documents, summary.Succeeded, summary.Empty, summary.Errored, summary.Skipped)
			if summary.Halted {
				fmt.Fprintln(out, "run halted on first stage failure")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&stagesFlag, "stages", "", "Stage or range to run (e.g. sanitize, fetch..sections)")
	cmd.Flags().StringSliceVar(&idsFlag, "ids", nil, "Decision identifiers to process (default: all unfinished)")
	cmd.Flags().BoolVar(&haltOnError, "halt-on-error", false, "Abort the run at the first stage failure")
	cmd.Flags().IntVar(&stageDelaySec, "stage-delay", 0, "Seconds to pause between stage invocations")
	cmd.Flags().IntVar(&docDelaySec, "doc-delay", 0, "Seconds to pause between documents")

	return cmd
}
