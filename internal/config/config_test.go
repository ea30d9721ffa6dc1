package config

import (
	"bytes"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envconfig.MapLookuper(map[string]string{
		"SOURCE_ROOT": "/data/audio",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data/audio", cfg.SourceRoot)
	assert.Empty(t, cfg.CaptionRoot)
	assert.Equal(t, "chunked_dataset", cfg.OutputRoot)
	assert.Equal(t, ".mp3", cfg.AudioExt)
	assert.Equal(t, ".vtt", cfg.CaptionExt)
	assert.Equal(t, ".whisper.auto.vtt", cfg.PreferredCaptionSuffix)
	assert.Equal(t, []int{8, 30, 60}, cfg.TargetDurationsSec)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "copy", cfg.AudioCodec)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SOURCE_ROOT", "/in/audio")
	t.Setenv("CAPTION_ROOT", "/in/captions")
	t.Setenv("OUTPUT_ROOT", "/out")
	t.Setenv("TARGET_DURATIONS_SEC", "5,15")
	t.Setenv("WORKERS", "6")
	t.Setenv("JOB_TIMEOUT", "90s")
	t.Setenv("AUDIO_CODEC", "libmp3lame")
	t.Setenv("PORT", "3000")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_PREFIX", "datasets")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "Debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in/captions", cfg.CaptionRoot)
	assert.Equal(t, "/out", cfg.OutputRoot)
	assert.Equal(t, []int{5, 15}, cfg.TargetDurationsSec)
	assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second}, cfg.TargetDurations())
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 6, cfg.EffectiveWorkers())
	assert.Equal(t, 90*time.Second, cfg.JobTimeout)
	assert.Equal(t, "libmp3lame", cfg.AudioCodec)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "datasets", cfg.S3Prefix)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())

	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "not-a-number"},
		{"workers", "WORKERS", "many"},
		{"targets", "TARGET_DURATIONS_SEC", "8,abc"},
		{"timeout", "JOB_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(envconfig.MapLookuper(map[string]string{
				"SOURCE_ROOT": "/in",
				tt.key:        tt.val,
			}))
			require.Error(t, err)
		})
	}
}

func validConfig() *Config {
	return &Config{
		SourceRoot:         "/in",
		OutputRoot:         "/out",
		AudioExt:           ".mp3",
		CaptionExt:         ".vtt",
		TargetDurationsSec: []int{8},
		Port:               8080,
		LogFormat:          "text",
		LogLevel:           "info",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing source root", func(t *testing.T) {
		cfg := validConfig()
		cfg.SourceRoot = ""
		assert.ErrorIs(t, cfg.Validate(), ErrSourceRootRequired)
	})

	t.Run("missing output root", func(t *testing.T) {
		cfg := validConfig()
		cfg.OutputRoot = ""
		assert.ErrorIs(t, cfg.Validate(), ErrOutputRootRequired)
	})

	invalid := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no targets", func(c *Config) { c.TargetDurationsSec = nil }},
		{"zero target", func(c *Config) { c.TargetDurationsSec = []int{8, 0} }},
		{"huge target", func(c *Config) { c.TargetDurationsSec = []int{7200} }},
		{"duplicate target", func(c *Config) { c.TargetDurationsSec = []int{8, 30, 8} }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad endpoint", func(c *Config) { c.S3Endpoint = "not a url" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.EffectiveWorkers())

	cfg.Workers = 3
	assert.Equal(t, 3, cfg.EffectiveWorkers())
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := validConfig()
	cfg.AWSSecretAccessKey = "secret-key"
	cfg.S3Bucket = "bucket"

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/in")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	require.NotNil(t, cfg.NewLogger())

	var buf bytes.Buffer
	cfg.NewLoggerTo(&buf).Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg":"test message"`)
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "warn",
	}

	var buf bytes.Buffer
	logger := cfg.NewLoggerTo(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
