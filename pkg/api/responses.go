package api

import (
	"time"

	"github.com/codeready-toolchain/secretmask/pkg/database"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck is the status of a single component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RunResponse describes one recorded batch run.
type RunResponse struct {
	ID          string               `json:"id"`
	Root        string               `json:"root"`
	DumpConfig  bool                 `json:"dump_config"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Files       int                  `json:"files"`
	Failed      int                  `json:"failed"`
	Redacted    int                  `json:"redacted"`
	FieldErrors int                  `json:"field_errors"`
	Results     []FileResultResponse `json:"results,omitempty"`
}

// FileResultResponse describes one file of a run.
type FileResultResponse struct {
	Path        string `json:"path"`
	Kind        string `json:"kind,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Completed   bool   `json:"completed"`
	Redacted    int    `json:"redacted"`
	FieldErrors int    `json:"field_errors"`
	Error       string `json:"error,omitempty"`
}

// ListRunsResponse is returned by GET /api/v1/runs.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

func toRunResponse(run *database.RunRecord) RunResponse {
	resp := RunResponse{
		ID:          run.ID,
		Root:        run.Root,
		DumpConfig:  run.DumpConfig,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Files:       run.Files,
		Failed:      run.Failed,
		Redacted:    run.Redacted,
		FieldErrors: run.FieldErrors,
	}
	for _, r := range run.Results {
		resp.Results = append(resp.Results, FileResultResponse(r))
	}
	return resp
}
