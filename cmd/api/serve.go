package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yash9140/GigFlow/db"
)

type serveOptions struct {
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live notification gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply the embedded schema before serving")

	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := bootstrap(rootOpts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, dbSettings(cfg))
	if err != nil {
		log.Error().Err(err).Msg("failed to connect database")
		return err
	}
	defer pool.Close()

	if opts.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info().Msg("schema applied")
	}

	a := buildApp(cfg, pool, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv.RegisterOnShutdown(a.gateway.CloseAll)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("starting gigflow api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		if err := a.hire.Drain(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("abandoned in-flight hire notifications")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
