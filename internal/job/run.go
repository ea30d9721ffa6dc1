package job

import (
	"sync"
	"time"

	"github.com/maauso/caption-chunker/internal/discovery"
	"github.com/maauso/caption-chunker/internal/job/id"
)

// Run groups the jobs created from one discovery pass.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Status follows the job state machine; a run completes once every job is terminal.
	Status Status
	// Targets are the requested chunk durations.
	Targets []time.Duration
	// Workers is the worker pool size used for this run.
	Workers int
	// JobIDs lists the jobs created for this run.
	JobIDs []string
	// Problems lists tracks that discovery could not schedule.
	Problems []string
	// Report is filled in once the run finishes.
	Report Report
	// Error contains any error message if the run failed before scheduling jobs.
	Error string
	// CreatedAt is when the run was created.
	CreatedAt time.Time
	// CompletedAt is when the run finished.
	CompletedAt time.Time
}

// NewRun creates a queued run.
func NewRun(targets []time.Duration, workers int) *Run {
	return &Run{
		ID:        id.New(id.Run),
		Status:    StatusInQueue,
		Targets:   append([]time.Duration(nil), targets...),
		Workers:   workers,
		CreatedAt: time.Now(),
	}
}

// TransitionTo changes the run status following the job state machine.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}
	r.Status = status
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		r.CompletedAt = time.Now()
	}
	return nil
}

// Finish records the final report and moves the run to status.
func (r *Run) Finish(status Status, report Report, errMsg string) error {
	r.mu.Lock()
	r.Report = report
	r.Error = errMsg
	r.mu.Unlock()
	return r.TransitionTo(status)
}

// Schedule records the jobs and discovery problems for the run.
func (r *Run) Schedule(jobs []*Job, problems []discovery.Problem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.JobIDs = make([]string, 0, len(jobs))
	for _, j := range jobs {
		r.JobIDs = append(r.JobIDs, j.ID)
	}
	r.Problems = make([]string, 0, len(problems))
	for _, p := range problems {
		r.Problems = append(r.Problems, p.String())
	}
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Run{
		ID:          r.ID,
		Status:      r.Status,
		Targets:     append([]time.Duration(nil), r.Targets...),
		Workers:     r.Workers,
		JobIDs:      append([]string(nil), r.JobIDs...),
		Problems:    append([]string(nil), r.Problems...),
		Report:      r.Report,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// Build expands discovered tracks into jobs: one per variant, caption file
// and target duration. Jobs are returned in a deterministic order.
func Build(runID string, tracks []discovery.Track, targets []time.Duration) []*Job {
	var jobs []*Job
	for _, t := range tracks {
		for _, target := range targets {
			for _, v := range t.Variants {
				for _, c := range t.Captions {
					j := New()
					j.RunID = runID
					j.TrackID = t.ID
					j.Variant = v.Name
					j.AudioPath = v.Path
					j.CaptionPath = c.Path
					j.CaptionBase = c.Base
					j.Target = target
					jobs = append(jobs, j)
				}
			}
		}
	}
	return jobs
}

// Report aggregates job outcomes for a run.
type Report struct {
	Jobs            int `json:"jobs"`
	Tracks          int `json:"tracks"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	TimedOut        int `json:"timed_out"`
	Cancelled       int `json:"cancelled"`
	AudioWritten    int `json:"audio_written"`
	CaptionsWritten int `json:"captions_written"`
	ChunksSkipped   int `json:"chunks_skipped"`
	ChunksFailed    int `json:"chunks_failed"`
	ParseIssues     int `json:"parse_issues"`
}

// Summarize folds job states and counts into a Report.
func Summarize(jobs []*Job) Report {
	var r Report
	tracks := make(map[string]struct{})
	for _, j := range jobs {
		snap := j.Clone()
		r.Jobs++
		tracks[snap.TrackID] = struct{}{}
		switch snap.Status {
		case StatusCompleted:
			r.Completed++
		case StatusFailed:
			r.Failed++
		case StatusTimedOut:
			r.TimedOut++
		case StatusCancelled:
			r.Cancelled++
		}
		r.AudioWritten += snap.Counts.AudioWritten
		r.CaptionsWritten += snap.Counts.CaptionsWritten
		r.ChunksSkipped += snap.Counts.Skipped
		r.ChunksFailed += snap.Counts.Failed
		r.ParseIssues += snap.ParseIssues
	}
	r.Tracks = len(tracks)
	return r
}

// OK reports whether every job completed and no chunk failed.
func (r Report) OK() bool {
	return r.Failed == 0 && r.TimedOut == 0 && r.Cancelled == 0 && r.ChunksFailed == 0
}
