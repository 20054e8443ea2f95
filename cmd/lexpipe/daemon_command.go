package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lexpipe/internal/daemon"
	"lexpipe/internal/pipeline"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run background pipeline workers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			logger := ctx.buildLogger()
			handlers, err := pipeline.NewHandlerSet(cfg, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			manager := pipeline.NewManager(cfg, store, handlers, logger)

			d, err := daemon.New(cfg, store, manager, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "lexpipe daemon running; press Ctrl-C to stop")

			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}
}
