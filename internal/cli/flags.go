package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maauso/caption-chunker/internal/config"
	"github.com/spf13/cobra"
)

// configFlags are the command-line overrides shared by run and serve.
// A flag only replaces the environment value when it was set explicitly.
type configFlags struct {
	source   string
	captions string
	output   string
	targets  []int
	workers  int
	timeout  time.Duration
	logLevel string
	port     int
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.source, "source", "s", "", "Audio source root, one directory per track (overrides SOURCE_ROOT)")
	fs.StringVar(&f.captions, "captions", "", "Caption root when captions live apart from audio (overrides CAPTION_ROOT)")
	fs.StringVarP(&f.output, "output", "o", "", "Output root for chunked pairs (overrides OUTPUT_ROOT)")
	fs.IntSliceVarP(&f.targets, "targets", "t", nil, "Target chunk durations in seconds, e.g. 8,30,60 (overrides TARGET_DURATIONS_SEC)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "Concurrent jobs; 0 means one per CPU (overrides WORKERS)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Per-job timeout (overrides JOB_TIMEOUT)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn, or error (overrides LOG_LEVEL)")
}

func (f *configFlags) registerPort(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "HTTP listen port (overrides PORT)")
}

func (f *configFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("source") {
		cfg.SourceRoot = f.source
	}
	if fs.Changed("captions") {
		cfg.CaptionRoot = f.captions
	}
	if fs.Changed("output") {
		cfg.OutputRoot = f.output
	}
	if fs.Changed("targets") {
		cfg.TargetDurationsSec = f.targets
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("timeout") {
		cfg.JobTimeout = f.timeout
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(f.logLevel)
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
}

// loadConfig reads the environment, applies flag overrides, and validates.
func loadConfig(cmd *cobra.Command, env *Env, f *configFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := env.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.NewLoggerTo(env.Stderr), nil
}
