package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yash9140/GigFlow/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), rootOpts)
		},
	}
}

func runMigrate(ctx context.Context, opts *RootOptions) error {
	cfg, log, err := bootstrap(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.NewPool(ctx, dbSettings(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info().Strs("files", db.Migrations()).Msg("schema applied")
	return nil
}
