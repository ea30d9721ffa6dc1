// Package server provides the HTTP control surface for chunking runs.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateRunRequest is the HTTP request body for starting a run.
type CreateRunRequest struct {
	// TargetDurationsSec overrides the configured targets when non-empty.
	TargetDurationsSec []int `json:"target_durations_sec" validate:"omitempty,max=16,unique,dive,min=1,max=3600"`
	// Workers overrides the configured pool size when positive.
	Workers int `json:"workers" validate:"min=0,max=256"`
}

// CreateRunResponse is the HTTP response after starting a run.
type CreateRunResponse struct {
	// ID is the unique identifier for the created run.
	ID string `json:"id"`
	// Status is the initial run status.
	Status string `json:"status"`
}

// ReportResponse mirrors the aggregated job counts of a run.
type ReportResponse struct {
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

// RunResponse is the HTTP response for getting run details.
type RunResponse struct {
	ID                 string          `json:"id"`
	Status             string          `json:"status"`
	TargetDurationsSec []int           `json:"target_durations_sec"`
	Workers            int             `json:"workers"`
	JobIDs             []string        `json:"job_ids"`
	Problems           []string        `json:"problems,omitempty"`
	Report             *ReportResponse `json:"report,omitempty"` // Set once the run is terminal
	Error              string          `json:"error,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// ChunkResponse describes one planned window of a job.
type ChunkResponse struct {
	Index      int    `json:"index"`
	Status     string `json:"status"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
	Cues       int    `json:"cues"`
	AudioKey   string `json:"audio_key"`
	CaptionKey string `json:"caption_key"`
	AudioURL   string `json:"audio_url,omitempty"`
	CaptionURL string `json:"caption_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	// TrackID, Variant, and Caption identify the source combination.
	TrackID   string `json:"track_id"`
	Variant   string `json:"variant"`
	Caption   string `json:"caption"`
	TargetSec int    `json:"target_sec"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of chunks processed (0-100).
	Progress        int             `json:"progress"`
	AudioWritten    int             `json:"audio_written"`
	CaptionsWritten int             `json:"captions_written"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	ParseIssues     int             `json:"parse_issues"`
	Chunks          []ChunkResponse `json:"chunks"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
}

// JobSummary is one entry of RunJobsResponse.
type JobSummary struct {
	ID        string `json:"id"`
	TrackID   string `json:"track_id"`
	Variant   string `json:"variant"`
	Caption   string `json:"caption"`
	TargetSec int    `json:"target_sec"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Failed    int    `json:"failed"`
}

// RunJobsResponse lists the jobs of one run.
type RunJobsResponse struct {
	RunID string       `json:"run_id"`
	Jobs  []JobSummary `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
