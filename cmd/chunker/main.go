// Package main provides the entry point for the caption chunker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/maauso/caption-chunker/internal/cli"
	"github.com/maauso/caption-chunker/internal/config"
	"github.com/maauso/caption-chunker/internal/discovery"
	"github.com/maauso/caption-chunker/internal/job"
	"github.com/spf13/cobra"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitIncomplete = 5
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCmd(cli.DefaultEnv())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(exitCode(err))
	}
}

func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "chunker",
		Short:   "Cut captioned audio into duration-bounded training pairs",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; main reports errors itself.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.PlanCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))

	return rootCmd
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors: configuration or environment is unusable.
	if errors.Is(err, config.ErrSourceRootRequired) || errors.Is(err, config.ErrOutputRootRequired) ||
		errors.Is(err, config.ErrInvalid) || errors.Is(err, discovery.ErrSourceNotFound) {
		return ExitSetup
	}

	// Validation errors: the request itself is wrong.
	if errors.Is(err, cli.ErrInvalidTarget) || errors.Is(err, cli.ErrFileNotFound) ||
		errors.Is(err, job.ErrNoTargets) {
		return ExitValidation
	}

	if errors.Is(err, cli.ErrRunIncomplete) {
		return ExitIncomplete
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
