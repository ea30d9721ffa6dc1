package job

import (
	"context"
	"sort"
	"sync"
)

var (
	_ Repository    = (*MemoryRepository)(nil)
	_ RunRepository = (*MemoryRepository)(nil)
)

// table is a mutex-guarded map that stores and hands out copies only.
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]T
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]T), clone: clone}
}

func (t *table[T]) put(id string, v T) {
	c := t.clone(v)
	t.mu.Lock()
	t.rows[id] = c
	t.mu.Unlock()
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(v), true
}

func (t *table[T]) filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []T
	for _, v := range t.rows {
		if keep(v) {
			out = append(out, t.clone(v))
		}
	}
	return out
}

// MemoryRepository keeps jobs and runs in process memory. Callers never
// share a pointer with the stored copy.
type MemoryRepository struct {
	jobs *table[*Job]
	runs *table[*Run]
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: newTable((*Job).Clone),
		runs: newTable((*Run).Clone),
	}
}

// Save stores a snapshot of j, replacing any earlier one.
func (r *MemoryRepository) Save(_ context.Context, j *Job) error {
	r.jobs.put(j.ID, j)
	return nil
}

// FindByID returns a snapshot of the job.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	j, ok := r.jobs.get(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// ListByRun returns snapshots of the jobs scheduled by runID, sorted by
// track then target.
func (r *MemoryRepository) ListByRun(_ context.Context, runID string) ([]*Job, error) {
	jobs := r.jobs.filter(func(j *Job) bool { return j.RunID == runID })
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].less(jobs[b]) })
	return jobs, nil
}

// SaveRun stores a snapshot of run.
func (r *MemoryRepository) SaveRun(_ context.Context, run *Run) error {
	r.runs.put(run.ID, run)
	return nil
}

// FindRun returns a snapshot of the run.
func (r *MemoryRepository) FindRun(_ context.Context, id string) (*Run, error) {
	run, ok := r.runs.get(id)
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}
