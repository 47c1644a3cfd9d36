package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/chargify-go/internal/app"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive and verify Chargify Direct redirects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.log.InfoObj("callback receiver starting", "config", rt.cfg.Redacted())
			cb, err := app.NewCallbackFromConfig(ctx, rt.cfg, rt.log)
			if err != nil {
				rt.log.ErrorObj("failed to initialize callback receiver", "error", err.Error())
				return err
			}
			if err := cb.Run(ctx); err != nil {
				return fmt.Errorf("callback run: %w", err)
			}
			return nil
		},
	}
}
