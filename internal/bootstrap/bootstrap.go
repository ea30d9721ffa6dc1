// Package bootstrap provides dependency initialization for the caption chunker.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/caption-chunker/internal/audio"
	"github.com/maauso/caption-chunker/internal/config"
	"github.com/maauso/caption-chunker/internal/discovery"
	"github.com/maauso/caption-chunker/internal/job"
	"github.com/maauso/caption-chunker/internal/storage"
)

// Dependencies holds all initialized dependencies shared by the CLI and the HTTP server.
type Dependencies struct {
	Orchestrator *job.Orchestrator
	Service      *job.ChunkService
	Storage      storage.Storage
}

// Option customizes dependency construction.
type Option func(*options)

type options struct {
	slicer audio.Slicer
}

// WithSlicer replaces the ffmpeg-backed slicer.
func WithSlicer(s audio.Slicer) Option {
	return func(o *options) {
		o.slicer = s
	}
}

// NewDependencies creates and initializes all dependencies for the application.
// cfg must already be validated.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	slicer := o.slicer
	if slicer == nil {
		slicer = audio.NewFFmpegSlicer(cfg.FFmpegPath, audio.WithCodec(cfg.AudioCodec))
	}

	// Jobs and runs share one in-memory repository
	repo := job.NewMemoryRepository()

	svc := job.NewChunkService(slicer, store, repo, logger)
	svc.SetPublish(cfg.S3Enabled())

	orch := job.NewOrchestrator(svc, repo, repo, job.RunConfig{
		AudioRoot:   cfg.SourceRoot,
		CaptionRoot: cfg.CaptionRoot,
		Discovery: discovery.Options{
			AudioExt:               cfg.AudioExt,
			CaptionExt:             cfg.CaptionExt,
			PreferredCaptionSuffix: cfg.PreferredCaptionSuffix,
		},
		Workers:    cfg.EffectiveWorkers(),
		JobTimeout: cfg.JobTimeout,
	}, logger)

	return &Dependencies{
		Orchestrator: orch,
		Service:      svc,
		Storage:      store,
	}, nil
}

// Close stops background runs and waits for them to drain.
func (d *Dependencies) Close() {
	d.Orchestrator.Close()
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputRoot, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("output_root", cfg.OutputRoot),
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_root", cfg.OutputRoot),
	)
	return localStore, nil
}
