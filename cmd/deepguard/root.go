package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kdimtricp/deepguard/internal/config"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string

	cfg      config.Config
	closeLog func() error
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "deepguard",
		Short: "DeepGuard deepfake detection",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog != nil {
				return opts.closeLog()
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/deepguard/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "append JSON logs to this file")

	cmd.AddCommand(
		newServeCmd(opts),
		newPopupCmd(opts),
		newAnalyzeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load(flags *pflag.FlagSet) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	closeLog, err := logger.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}
