// Package job provides the chunking Job aggregate, its state machine,
// persistence ports, and the services that execute jobs across a worker pool.
// A job covers one (audio variant, caption file, target duration) combination.
package job

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/maauso/caption-chunker/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for an available worker.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the job is being processed by a worker.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job finished; individual chunks may still have failed.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job could not run at all.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the run was cancelled before the job finished.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the job exceeded its time budget.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ChunkStatus represents the outcome of a single output pair.
type ChunkStatus string

const (
	// ChunkStatusPending indicates the chunk is waiting to be processed.
	ChunkStatusPending ChunkStatus = "PENDING"
	// ChunkStatusCompleted indicates at least one output was written and none failed.
	ChunkStatusCompleted ChunkStatus = "COMPLETED"
	// ChunkStatusSkipped indicates both outputs already existed.
	ChunkStatusSkipped ChunkStatus = "SKIPPED"
	// ChunkStatusFailed indicates slicing or writing failed.
	ChunkStatusFailed ChunkStatus = "FAILED"
)

// Chunk records what happened to one planned window.
type Chunk struct {
	// Index is the 0-based sequence index of the window.
	Index int
	// Status is the processing outcome.
	Status ChunkStatus
	// Start and End bound the window in the source track.
	Start time.Duration
	End   time.Duration
	// Cues is the number of cues in the window.
	Cues int
	// AudioKey and CaptionKey are storage keys of the outputs.
	AudioKey   string
	CaptionKey string
	// AudioURL and CaptionURL are set when outputs were mirrored remotely.
	AudioURL   string
	CaptionURL string
	// Error contains any error message if processing failed.
	Error string
}

// Counts aggregates per-job write results.
type Counts struct {
	AudioWritten    int `json:"audio_written"`
	CaptionsWritten int `json:"captions_written"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
}

// Job represents one chunking job.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// RunID links the job to the run that created it.
	RunID string
	// TrackID is the source directory name shared by audio and captions.
	TrackID string
	// Variant is the audio rendition name (file name without extension).
	Variant string
	// AudioPath is the source audio file.
	AudioPath string
	// CaptionPath is the source caption file.
	CaptionPath string
	// CaptionBase prefixes every output file name.
	CaptionBase string
	// Target is the requested chunk duration.
	Target time.Duration
	// Status is the current job state.
	Status Status
	// Chunks records the outcome of every planned window.
	Chunks []Chunk
	// Counts aggregates chunk outcomes.
	Counts Counts
	// ParseIssues is the number of malformed caption blocks dropped.
	ParseIssues int
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.New(id.Job))
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		Chunks:    make([]Chunk, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OutputDir returns the storage directory for this job's outputs:
// <track-id>/chunk_<seconds>s/<variant>.
func (j *Job) OutputDir() string {
	return path.Join(j.TrackID, fmt.Sprintf("chunk_%ds", int(j.Target/time.Second)), j.Variant)
}

// AudioKey returns the storage key of the audio output for chunk index.
// The audio extension follows the source file.
func (j *Job) AudioKey(index int) string {
	return path.Join(j.OutputDir(), fmt.Sprintf("%s_audio_%d%s", j.CaptionBase, index, strings.ToLower(path.Ext(j.AudioPath))))
}

// CaptionKey returns the storage key of the caption output for chunk index.
func (j *Job) CaptionKey(index int) string {
	return path.Join(j.OutputDir(), fmt.Sprintf("%s_audio_%d.vtt", j.CaptionBase, index))
}

// String identifies the job in logs.
func (j *Job) String() string {
	return fmt.Sprintf("%s/%s/%s@%s", j.TrackID, j.Variant, j.CaptionBase, j.Target)
}

// less gives job listings a stable order.
func (j *Job) less(o *Job) bool {
	switch {
	case j.TrackID != o.TrackID:
		return j.TrackID < o.TrackID
	case j.Target != o.Target:
		return j.Target < o.Target
	case j.Variant != o.Variant:
		return j.Variant < o.Variant
	case j.CaptionBase != o.CaptionBase:
		return j.CaptionBase < o.CaptionBase
	}
	return j.ID < o.ID
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// Timeout transitions the job to TIMED_OUT state with an error message.
func (j *Job) Timeout(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusTimedOut)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetChunks sets the planned chunks for this job.
func (j *Job) SetChunks(chunks []Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Chunks = chunks
	j.UpdatedAt = time.Now()
}

// SetParseIssues records the number of dropped caption blocks.
func (j *Job) SetParseIssues(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ParseIssues = n
	j.UpdatedAt = time.Now()
}

// RecordChunk stores the outcome of chunk index and folds it into Counts.
// audioWritten and captionWritten report which outputs this attempt produced.
func (j *Job) RecordChunk(index int, chunk Chunk, audioWritten, captionWritten bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if index < 0 || index >= len(j.Chunks) {
		return
	}
	j.Chunks[index] = chunk
	if audioWritten {
		j.Counts.AudioWritten++
	}
	if captionWritten {
		j.Counts.CaptionsWritten++
	}
	switch chunk.Status {
	case ChunkStatusSkipped:
		j.Counts.Skipped++
	case ChunkStatusFailed:
		j.Counts.Failed++
	}
	j.UpdatedAt = time.Now()
}

// Progress returns the percentage of chunks that reached a final state.
func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.Chunks) == 0 {
		if j.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	done := 0
	for _, c := range j.Chunks {
		if c.Status != ChunkStatusPending {
			done++
		}
	}
	return done * 100 / len(j.Chunks)
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled ||
		j.Status == StatusTimedOut
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	chunks := make([]Chunk, len(j.Chunks))
	copy(chunks, j.Chunks)

	return &Job{
		ID:          j.ID,
		RunID:       j.RunID,
		TrackID:     j.TrackID,
		Variant:     j.Variant,
		AudioPath:   j.AudioPath,
		CaptionPath: j.CaptionPath,
		CaptionBase: j.CaptionBase,
		Target:      j.Target,
		Status:      j.Status,
		Chunks:      chunks,
		Counts:      j.Counts,
		ParseIssues: j.ParseIssues,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
