package job

import (
	"context"
	"errors"
)

var (
	// ErrJobNotFound is returned for an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)

// Repository stores job snapshots. Implementations must be safe for
// concurrent use by the worker pool.
type Repository interface {
	// Save inserts or replaces the job.
	Save(ctx context.Context, job *Job) error
	// FindByID returns ErrJobNotFound for an unknown ID.
	FindByID(ctx context.Context, id string) (*Job, error)
	// ListByRun returns every job scheduled by the run, possibly none.
	ListByRun(ctx context.Context, runID string) ([]*Job, error)
}

// RunRepository stores run snapshots.
type RunRepository interface {
	SaveRun(ctx context.Context, run *Run) error
	// FindRun returns ErrRunNotFound for an unknown ID.
	FindRun(ctx context.Context, id string) (*Run, error)
}
