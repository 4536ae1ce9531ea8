package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/popup"
	"github.com/kdimtricp/deepguard/internal/storage"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

func newPopupCmd(root *rootOptions) *cobra.Command {
	var (
		mode    string
		website string
		latency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Open the compact detection popup in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("mode") {
				cfg.Popup.Mode = mode
			}
			if cmd.Flags().Changed("website") {
				cfg.Popup.WebsiteURL = website
			}
			if cmd.Flags().Changed("latency") {
				cfg.Popup.Latency = latency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// The terminal belongs to the UI; only errors reach stderr.
			if cfg.Log.File == "" {
				logger.Init(logger.LevelError, nil)
			}

			client, err := analysis.New(cfg.PopupAnalysis())
			if err != nil {
				return err
			}
			ctrl, err := workflow.New(workflow.Options{
				Policy:  cfg.PopupPolicy(),
				Store:   storage.NewMemoryStore(),
				Client:  client,
				Timeout: cfg.Popup.Timeout,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return popup.Run(ctx, popup.Options{Controller: ctrl, WebsiteURL: cfg.Popup.WebsiteURL})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "analysis mode: messaging, simulated, http")
	cmd.Flags().StringVar(&website, "website", "", "URL behind the footer link")
	cmd.Flags().DurationVar(&latency, "latency", 0, "simulated analysis latency")
	return cmd
}
