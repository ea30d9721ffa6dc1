// Package cli implements the chunker subcommands.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/maauso/caption-chunker/internal/bootstrap"
	"github.com/maauso/caption-chunker/internal/config"
)

// Env holds injectable dependencies for CLI commands.
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// LoadConfig reads the environment-backed configuration. Flags are
	// applied on top of the result before validation.
	LoadConfig func() (*config.Config, error)
	// NewDependencies wires storage, slicer, and orchestrator for a validated config.
	NewDependencies func(cfg *config.Config, logger *slog.Logger) (*bootstrap.Dependencies, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(fn func() (*config.Config, error)) EnvOption {
	return func(e *Env) {
		e.LoadConfig = fn
	}
}

// WithDependencies sets the dependency factory.
func WithDependencies(fn func(*config.Config, *slog.Logger) (*bootstrap.Dependencies, error)) EnvOption {
	return func(e *Env) {
		e.NewDependencies = fn
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		LoadConfig:      config.Load,
		NewDependencies: func(cfg *config.Config, logger *slog.Logger) (*bootstrap.Dependencies, error) {
			return bootstrap.NewDependencies(cfg, logger)
		},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}
