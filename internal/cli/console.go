package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/byOdysea/laserfocus-host/internal/channels"
	"github.com/byOdysea/laserfocus-host/internal/config"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Chat interactively from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h, err := buildHost(ctx, cfg)
			if err != nil {
				return err
			}
			defer h.shutdown()

			console, err := channels.NewConsole(h.orch)
			if err != nil {
				return err
			}
			return console.Run(ctx)
		},
	}
}
