package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/apperrors"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/storage"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

type analyzeOptions struct {
	mode     string
	endpoint string
	latency  time.Duration
	asJSON   bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run one detection on a local image or video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("mode") {
				cfg.Analysis.Mode = opts.mode
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.Analysis.Endpoint = opts.endpoint
			}
			if cmd.Flags().Changed("latency") {
				cfg.Analysis.Latency = opts.latency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			client, err := analysis.New(cfg.WebAnalysis())
			if err != nil {
				return err
			}
			ctrl, err := workflow.New(workflow.Options{
				Policy:  cfg.WebPolicy(),
				Store:   storage.NewMemoryStore(),
				Client:  client,
				Timeout: cfg.Analysis.Timeout,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), ctrl, args[0], opts.asJSON)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "analysis mode: simulated, http, messaging")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "detection endpoint for http mode")
	cmd.Flags().DurationVar(&opts.latency, "latency", 0, "simulated analysis latency")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, ctrl *workflow.Controller, path string, asJSON bool) error {
	f, err := media.ReadFile(path)
	if err != nil {
		return err
	}

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := ctrl.SelectFile(f); err != nil {
		return errors.New(apperrors.PublicMessage(err))
	}
	if err := ctrl.StartAnalysis(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			ctrl.Reset()
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return workflow.ErrClosed
			}
			switch snap.State {
			case workflow.Failed:
				return errors.New(snap.Error.Message)
			case workflow.Succeeded:
				return printResult(out, snap, asJSON)
			}
		}
	}
}

func printResult(out io.Writer, snap workflow.Snapshot, asJSON bool) error {
	r := snap.Result
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(out, "File:       %s (%s, %s)\n", snap.Asset.Name, snap.Asset.Category, snap.Asset.FormattedSize())
	fmt.Fprintf(out, "Verdict:    %s\n", r.Verdict())
	fmt.Fprintf(out, "Confidence: %s\n", r.ConfidenceText())
	for _, region := range r.Regions {
		fmt.Fprintf(out, "Region:     x=%d y=%d w=%d h=%d\n", region.X, region.Y, region.Width, region.Height)
	}
	for _, ind := range r.Indicators() {
		fmt.Fprintf(out, "Indicator:  %s\n", ind)
	}
	return nil
}
