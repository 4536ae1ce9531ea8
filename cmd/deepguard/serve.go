package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/deepguard/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, mode, endpoint string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the detection web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("mode") {
				cfg.Analysis.Mode = mode
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Analysis.Endpoint = endpoint
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&mode, "mode", "", "analysis mode: simulated, http, messaging")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "detection endpoint for http mode")
	return cmd
}
