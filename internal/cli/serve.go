package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maauso/caption-chunker/internal/server"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may take to drain.
const shutdownTimeout = 30 * time.Second

// ServeCmd creates the serve command.
func ServeCmd(env *Env) *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for starting and inspecting runs",
		Long: `Start an HTTP server exposing:

  GET  /health      liveness probe
  POST /runs        start a run in the background
  GET  /runs/{id}   run status and report
  GET  /jobs/{id}   one job with its chunk outcomes

The server stops gracefully on SIGINT or SIGTERM; running jobs are cancelled.`,
		Example: `  chunker serve --source data/audio --output data/chunks --port 8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, env, &flags)
		},
	}

	flags.register(cmd)
	flags.registerPort(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, env *Env, flags *configFlags) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfig(cmd, env, flags)
	if err != nil {
		return err
	}

	logger.Info("starting caption chunker API",
		slog.Int("port", cfg.Port),
		slog.String("source_root", cfg.SourceRoot),
		slog.String("output_root", cfg.OutputRoot),
		slog.Any("target_durations_sec", cfg.TargetDurationsSec),
		slog.Int("workers", cfg.EffectiveWorkers()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := env.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	handlers := server.NewHandlers(deps.Orchestrator, logger, server.WithDefaultTargets(cfg.TargetDurations()))
	router := server.NewRouter(handlers, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
