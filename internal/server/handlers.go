package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maauso/caption-chunker/internal/job"
)

// RunService is the subset of the orchestrator the handlers depend on.
type RunService interface {
	StartRun(ctx context.Context, targets []time.Duration, workers int) (*job.Run, error)
	GetRun(ctx context.Context, id string) (*job.Run, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListRunJobs(ctx context.Context, runID string) ([]*job.Job, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        RunService
	validator      *validator.Validate
	logger         *slog.Logger
	defaultTargets []time.Duration
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultTargets sets the targets used when a request does not name any.
func WithDefaultTargets(targets []time.Duration) HandlerOption {
	return func(h *Handlers) {
		h.defaultTargets = targets
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service RunService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateRun handles POST /runs requests. The run executes in the background.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("failed to decode request body",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
			return
		}
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	targets := h.defaultTargets
	if len(req.TargetDurationsSec) > 0 {
		targets = make([]time.Duration, 0, len(req.TargetDurationsSec))
		for _, s := range req.TargetDurationsSec {
			targets = append(targets, time.Duration(s)*time.Second)
		}
	}

	run, err := h.service.StartRun(r.Context(), targets, req.Workers)
	if err != nil {
		if errors.Is(err, job.ErrNoTargets) {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		h.logger.Error("failed to start run",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start run", "RUN_CREATION_FAILED")
		return
	}

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:     run.ID,
		Status: string(run.Status),
	})
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, job.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// ListRunJobs handles GET /runs/{id}/jobs requests.
func (h *Handlers) ListRunJobs(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	jobs, err := h.service.ListRunJobs(r.Context(), runID)
	if err != nil {
		if errors.Is(err, job.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to list run jobs",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := RunJobsResponse{RunID: runID, Jobs: make([]JobSummary, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, JobSummary{
			ID:        j.ID,
			TrackID:   j.TrackID,
			Variant:   j.Variant,
			Caption:   j.CaptionBase,
			TargetSec: int(j.Target / time.Second),
			Status:    string(j.Status),
			Progress:  j.Progress(),
			Failed:    j.Counts.Failed,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

func toRunResponse(run *job.Run) RunResponse {
	targets := make([]int, 0, len(run.Targets))
	for _, t := range run.Targets {
		targets = append(targets, int(t/time.Second))
	}

	resp := RunResponse{
		ID:                 run.ID,
		Status:             string(run.Status),
		TargetDurationsSec: targets,
		Workers:            run.Workers,
		JobIDs:             run.JobIDs,
		Problems:           run.Problems,
		Error:              run.Error,
		CreatedAt:          run.CreatedAt,
	}
	if resp.JobIDs == nil {
		resp.JobIDs = []string{}
	}
	if !run.CompletedAt.IsZero() {
		completed := run.CompletedAt
		resp.CompletedAt = &completed
		rep := ReportResponse(run.Report)
		resp.Report = &rep
	}
	return resp
}

func toJobResponse(j *job.Job) JobResponse {
	chunks := make([]ChunkResponse, 0, len(j.Chunks))
	for _, c := range j.Chunks {
		chunks = append(chunks, ChunkResponse{
			Index:      c.Index,
			Status:     string(c.Status),
			StartMs:    c.Start.Milliseconds(),
			EndMs:      c.End.Milliseconds(),
			Cues:       c.Cues,
			AudioKey:   c.AudioKey,
			CaptionKey: c.CaptionKey,
			AudioURL:   c.AudioURL,
			CaptionURL: c.CaptionURL,
			Error:      c.Error,
		})
	}

	return JobResponse{
		ID:              j.ID,
		RunID:           j.RunID,
		TrackID:         j.TrackID,
		Variant:         j.Variant,
		Caption:         j.CaptionBase,
		TargetSec:       int(j.Target / time.Second),
		Status:          string(j.Status),
		Progress:        j.Progress(),
		AudioWritten:    j.Counts.AudioWritten,
		CaptionsWritten: j.Counts.CaptionsWritten,
		Skipped:         j.Counts.Skipped,
		Failed:          j.Counts.Failed,
		ParseIssues:     j.ParseIssues,
		Chunks:          chunks,
		Error:           j.Error,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
