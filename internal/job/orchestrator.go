package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/caption-chunker/internal/discovery"
	"golang.org/x/sync/semaphore"
)

// ErrNoTargets is returned when a run is requested without target durations.
var ErrNoTargets = errors.New("at least one target duration is required")

// RunConfig holds the settings shared by every run.
type RunConfig struct {
	AudioRoot   string
	CaptionRoot string
	Discovery   discovery.Options
	Workers     int
	JobTimeout  time.Duration
}

// Orchestrator discovers tracks, schedules jobs, and tracks runs. Runs share
// one output tree, so at most one executes at a time; later runs wait IN_QUEUE.
type Orchestrator struct {
	svc    *ChunkService
	runs   RunRepository
	jobs   Repository
	cfg    RunConfig
	logger *slog.Logger
	active *semaphore.Weighted

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(svc *ChunkService, runs RunRepository, jobs Repository, cfg RunConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		svc:    svc,
		runs:   runs,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
		active: semaphore.NewWeighted(1),
		bg:     bg,
		cancel: cancel,
	}
}

// CreateRun validates the request and persists a queued run. Repeated
// targets are collapsed; workers <= 0 falls back to the configured pool size.
func (o *Orchestrator) CreateRun(ctx context.Context, targets []time.Duration, workers int) (*Run, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	seen := make(map[time.Duration]struct{}, len(targets))
	unique := make([]time.Duration, 0, len(targets))
	for _, t := range targets {
		if t < time.Second {
			return nil, fmt.Errorf("invalid target duration %s: must be at least 1s", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	targets = unique
	if workers <= 0 {
		workers = o.cfg.Workers
	}

	run := NewRun(targets, workers)
	if err := o.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	o.logger.Info("run created",
		slog.String("run_id", run.ID),
		slog.Int("targets", len(targets)),
		slog.Int("workers", workers),
	)
	return run, nil
}

// Execute performs run synchronously and returns its report. A discovery
// failure fails the run; job failures only show up in the report.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) (Report, error) {
	if err := o.active.Acquire(ctx, 1); err != nil {
		if run.GetStatus() == StatusInQueue {
			_ = run.Finish(StatusCancelled, Report{}, err.Error())
			o.saveRun(context.WithoutCancel(ctx), run)
		}
		return Report{}, fmt.Errorf("wait for active run: %w", err)
	}
	defer o.active.Release(1)

	if err := run.TransitionTo(StatusRunning); err != nil {
		return Report{}, err
	}
	o.saveRun(ctx, run)

	res, err := discovery.Discover(o.cfg.AudioRoot, o.cfg.CaptionRoot, o.cfg.Discovery)
	if err != nil {
		_ = run.Finish(StatusFailed, Report{}, err.Error())
		o.saveRun(context.WithoutCancel(ctx), run)
		return Report{}, fmt.Errorf("discover sources: %w", err)
	}
	for _, p := range res.Problems {
		o.logger.Warn("track skipped", slog.String("track_id", p.TrackID), slog.String("reason", p.Reason))
	}

	jobs := Build(run.ID, res.Tracks, run.Targets)
	run.Schedule(jobs, res.Problems)
	for _, j := range jobs {
		o.svc.save(ctx, j)
	}
	o.saveRun(ctx, run)

	o.logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.Int("tracks", len(res.Tracks)),
		slog.Int("jobs", len(jobs)),
	)

	report := NewRunner(o.svc, run.Workers, o.cfg.JobTimeout).Run(ctx, jobs)

	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	_ = run.Finish(status, report, "")
	o.saveRun(context.WithoutCancel(ctx), run)

	o.logger.Info("run finished",
		slog.String("run_id", run.ID),
		slog.String("status", string(status)),
		slog.Int("jobs", report.Jobs),
		slog.Int("failed", report.Failed),
		slog.Int("timed_out", report.TimedOut),
		slog.Int("audio_written", report.AudioWritten),
		slog.Int("captions_written", report.CaptionsWritten),
		slog.Int("chunks_skipped", report.ChunksSkipped),
		slog.Int("chunks_failed", report.ChunksFailed),
	)
	return report, nil
}

// StartRun creates a run and executes it in the background. The run
// outlives ctx; Close cancels it.
func (o *Orchestrator) StartRun(ctx context.Context, targets []time.Duration, workers int) (*Run, error) {
	run, err := o.CreateRun(ctx, targets, workers)
	if err != nil {
		return nil, err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.Execute(o.bg, run); err != nil {
			o.logger.Error("run failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return run.Clone(), nil
}

// GetRun retrieves a run by ID.
func (o *Orchestrator) GetRun(ctx context.Context, id string) (*Run, error) {
	return o.runs.FindRun(ctx, id)
}

// GetJob retrieves a job by ID.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (*Job, error) {
	return o.jobs.FindByID(ctx, id)
}

// ListRunJobs returns the jobs scheduled by a run. It returns
// ErrRunNotFound for an unknown run and an empty slice while the run
// is still discovering sources.
func (o *Orchestrator) ListRunJobs(ctx context.Context, runID string) ([]*Job, error) {
	if _, err := o.runs.FindRun(ctx, runID); err != nil {
		return nil, err
	}
	jobs, err := o.jobs.ListByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs of run %s: %w", runID, err)
	}
	if jobs == nil {
		jobs = []*Job{}
	}
	return jobs, nil
}

// Close cancels background runs and waits for them to record their state.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) saveRun(ctx context.Context, run *Run) {
	if err := o.runs.SaveRun(ctx, run); err != nil {
		o.logger.Error("failed to save run",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}
