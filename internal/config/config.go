// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrSourceRootRequired is returned when SOURCE_ROOT is not set.
	ErrSourceRootRequired = errors.New("config: SOURCE_ROOT is required")
	// ErrOutputRootRequired is returned when OUTPUT_ROOT is empty.
	ErrOutputRootRequired = errors.New("config: OUTPUT_ROOT is required")
	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Source layout
	SourceRoot             string `env:"SOURCE_ROOT" json:"source_root" validate:"required"`
	CaptionRoot            string `env:"CAPTION_ROOT" json:"caption_root,omitempty"` // Defaults to SourceRoot
	OutputRoot             string `env:"OUTPUT_ROOT, default=chunked_dataset" json:"output_root" validate:"required"`
	AudioExt               string `env:"AUDIO_EXT, default=.mp3" json:"audio_ext" validate:"required"`
	CaptionExt             string `env:"CAPTION_EXT, default=.vtt" json:"caption_ext" validate:"required"`
	PreferredCaptionSuffix string `env:"PREFERRED_CAPTION_SUFFIX, default=.whisper.auto.vtt" json:"preferred_caption_suffix"`

	// Processing settings
	TargetDurationsSec []int         `env:"TARGET_DURATIONS_SEC, default=8,30,60" json:"target_durations_sec" validate:"min=1,unique,dive,min=1,max=3600"`
	Workers            int           `env:"WORKERS, default=0" json:"workers" validate:"min=0,max=256"` // 0 means one per CPU
	JobTimeout         time.Duration `env:"JOB_TIMEOUT, default=10m" json:"job_timeout"`

	// Audio tooling
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	AudioCodec string `env:"AUDIO_CODEC, default=copy" json:"audio_codec"`

	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`                // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// Call Validate once command-line overrides have been applied.
func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

// LoadFrom reads configuration from the given lookuper.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return cfg, nil
}

// Validate checks the configuration with struct tags.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch {
			case fe.Field() == "SourceRoot" && fe.Tag() == "required":
				return ErrSourceRootRequired
			case fe.Field() == "OutputRoot" && fe.Tag() == "required":
				return ErrOutputRootRequired
			}
		}
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// TargetDurations returns the configured targets as durations.
func (c *Config) TargetDurations() []time.Duration {
	out := make([]time.Duration, 0, len(c.TargetDurationsSec))
	for _, s := range c.TargetDurationsSec {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// EffectiveWorkers resolves Workers, mapping 0 to the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{SourceRoot: %s, CaptionRoot: %s, OutputRoot: %s, TargetDurationsSec: %v, Workers: %d, JobTimeout: %s, Port: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.SourceRoot,
		c.CaptionRoot,
		c.OutputRoot,
		c.TargetDurationsSec,
		c.Workers,
		c.JobTimeout,
		c.Port,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
