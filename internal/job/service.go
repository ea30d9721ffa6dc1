package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maauso/caption-chunker/internal/audio"
	"github.com/maauso/caption-chunker/internal/caption"
	"github.com/maauso/caption-chunker/internal/chunk"
	"github.com/maauso/caption-chunker/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ChunkService executes chunking jobs: it parses the caption file, plans the
// windows, and writes one audio slice and one re-based caption per window.
// Existing non-empty outputs are left untouched, so reruns only fill gaps.
type ChunkService struct {
	slicer  audio.Slicer
	store   storage.Storage
	repo    Repository
	logger  *slog.Logger
	publish bool
}

// NewChunkService creates a new ChunkService.
func NewChunkService(slicer audio.Slicer, store storage.Storage, repo Repository, logger *slog.Logger) *ChunkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkService{
		slicer: slicer,
		store:  store,
		repo:   repo,
		logger: logger,
	}
}

// SetPublish enables mirroring freshly written outputs through Storage.Publish.
func (s *ChunkService) SetPublish(publish bool) {
	s.publish = publish
}

// GetJob retrieves a job by ID.
func (s *ChunkService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// Execute runs all chunks of j. The returned error is non-nil only when the
// job as a whole could not proceed (unreadable caption, unloadable audio,
// context done); per-chunk failures are recorded on the job instead.
func (s *ChunkService) Execute(ctx context.Context, j *Job) error {
	logger := s.logger.With(
		slog.String("job_id", j.ID),
		slog.String("track_id", j.TrackID),
		slog.String("variant", j.Variant),
		slog.String("caption", j.CaptionBase),
		slog.Duration("target", j.Target),
	)

	data, err := os.ReadFile(j.CaptionPath)
	if err != nil {
		return fmt.Errorf("read caption: %w", err)
	}

	report := caption.Parse(data)
	j.SetParseIssues(len(report.Issues))
	for _, issue := range report.Issues {
		logger.Warn("dropped malformed cue", slog.String("issue", issue.String()))
	}

	chunks := chunk.Plan(report.Cues, j.Target)
	records := make([]Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = Chunk{
			Index:      c.Index,
			Status:     ChunkStatusPending,
			Start:      c.Start(),
			End:        c.End(),
			Cues:       len(c.Cues),
			AudioKey:   j.AudioKey(c.Index),
			CaptionKey: j.CaptionKey(c.Index),
		}
	}
	j.SetChunks(records)
	s.save(ctx, j)

	if len(chunks) == 0 {
		logger.Info("no cues to chunk")
		return nil
	}

	// The source is only probed once some audio output is actually missing.
	var track *audio.Track
	loadTrack := func() (audio.Track, error) {
		if track != nil {
			return *track, nil
		}
		t, err := s.slicer.Load(ctx, j.AudioPath)
		if err != nil {
			return audio.Track{}, err
		}
		track = &t
		return t, nil
	}

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec := records[i]
		audioWritten, captionWritten, err := s.writeChunk(ctx, c, &rec, loadTrack)
		switch {
		case err != nil:
			rec.Status = ChunkStatusFailed
			rec.Error = err.Error()
			logger.Error("chunk failed",
				slog.Int("chunk", c.Index),
				slog.String("window", c.String()),
				slog.String("error", err.Error()),
			)
		case !audioWritten && !captionWritten:
			rec.Status = ChunkStatusSkipped
		default:
			rec.Status = ChunkStatusCompleted
		}
		j.RecordChunk(i, rec, audioWritten, captionWritten)

		if err != nil {
			if errors.Is(err, audio.ErrInputNotFound) || errors.Is(err, audio.ErrProbeFailed) {
				return fmt.Errorf("load audio: %w", err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		}
	}

	counts := j.Clone().Counts
	logger.Info("job chunks processed",
		slog.Int("chunks", len(chunks)),
		slog.Int("audio_written", counts.AudioWritten),
		slog.Int("captions_written", counts.CaptionsWritten),
		slog.Int("skipped", counts.Skipped),
		slog.Int("failed", counts.Failed),
	)
	return nil
}

// writeChunk produces the missing outputs of one window.
func (s *ChunkService) writeChunk(
	ctx context.Context,
	c chunk.Chunk,
	rec *Chunk,
	loadTrack func() (audio.Track, error),
) (audioWritten, captionWritten bool, err error) {
	audioExists, err := s.store.Exists(ctx, rec.AudioKey)
	if err != nil {
		return false, false, fmt.Errorf("check audio output: %w", err)
	}
	if !audioExists {
		track, err := loadTrack()
		if err != nil {
			return false, false, err
		}
		seg, err := s.slicer.Slice(track, c.Start(), c.End())
		if err != nil {
			return false, false, fmt.Errorf("slice %s: %w", c, err)
		}
		if err := s.slicer.Export(ctx, seg, s.store.Path(rec.AudioKey)); err != nil {
			return false, false, fmt.Errorf("export audio: %w", err)
		}
		audioWritten = true
		rec.AudioURL = s.mirror(ctx, rec.AudioKey)
	}

	captionExists, err := s.store.Exists(ctx, rec.CaptionKey)
	if err != nil {
		return audioWritten, false, fmt.Errorf("check caption output: %w", err)
	}
	if !captionExists {
		if err := s.store.Write(ctx, rec.CaptionKey, bytes.NewReader(c.Caption())); err != nil {
			return audioWritten, false, fmt.Errorf("write caption: %w", err)
		}
		captionWritten = true
		rec.CaptionURL = s.mirror(ctx, rec.CaptionKey)
	}

	return audioWritten, captionWritten, nil
}

// mirror publishes key when enabled. Mirroring failures are logged only;
// the local output is authoritative.
func (s *ChunkService) mirror(ctx context.Context, key string) string {
	if !s.publish {
		return ""
	}
	url, err := s.store.Publish(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			s.logger.Warn("failed to publish output",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return url
}

func (s *ChunkService) save(ctx context.Context, j *Job) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Runner executes jobs across a bounded worker pool. Jobs share nothing, so
// one job failing, timing out, or panicking never affects its siblings.
type Runner struct {
	svc     *ChunkService
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. workers < 1 means one worker; timeout <= 0
// disables the per-job deadline.
func NewRunner(svc *ChunkService, workers int, timeout time.Duration) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		svc:     svc,
		workers: workers,
		timeout: timeout,
		logger:  svc.logger,
	}
}

// Run executes every job and returns the aggregated report. Jobs are
// processed in no particular order. Cancelling ctx marks the remaining
// jobs CANCELLED.
func (r *Runner) Run(ctx context.Context, jobs []*Job) Report {
	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for _, j := range jobs {
		g.Go(func() error {
			r.runOne(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	return Summarize(jobs)
}

func (r *Runner) runOne(ctx context.Context, j *Job) {
	if ctx.Err() != nil {
		_ = j.Cancel()
		r.svc.save(ctx, j)
		return
	}

	if err := j.Start(); err != nil {
		r.logger.Error("failed to start job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	r.svc.save(ctx, j)

	jobCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err := r.execute(jobCtx, j)
	switch {
	case err == nil:
		_ = j.Complete()
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		_ = j.Timeout(fmt.Sprintf("exceeded %s", r.timeout))
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		_ = j.Cancel()
	default:
		_ = j.Fail(err.Error())
	}

	if err != nil {
		r.logger.Error("job did not complete",
			slog.String("job_id", j.ID),
			slog.String("job", j.String()),
			slog.String("status", string(j.GetStatus())),
			slog.String("error", err.Error()),
		)
	}

	// The run context may already be done; persist the final state regardless.
	r.svc.save(context.WithoutCancel(ctx), j)
}

// execute shields the pool from panics inside a job.
func (r *Runner) execute(ctx context.Context, j *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return r.svc.Execute(ctx, j)
}
