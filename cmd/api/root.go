package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yash9140/GigFlow/config"
	"github.com/yash9140/GigFlow/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
}

// NewRootCommand creates the gigflow command tree. Running it bare serves
// the API.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gigflow",
		Short:         "GigFlow marketplace API",
		Long:          "Serves the GigFlow gig/bid/hire API with live hire notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, serveOptions{})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// bootstrap loads configuration and builds the process logger.
func bootstrap(opts *RootOptions) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return cfg, logger.New(cfg.Environment, level), nil
}
