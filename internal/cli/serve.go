package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/byOdysea/laserfocus-host/internal/channels"
	"github.com/byOdysea/laserfocus-host/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for line-delimited JSON clients",
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

			server, err := channels.NewServer(h.orch, cfg.Serve.Addr)
			if err != nil {
				return err
			}
			return server.ListenAndServe(ctx)
		},
	}
}
