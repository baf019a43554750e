package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/pipeline"
)

// ScanHandler handles scan job endpoints.
type ScanHandler struct {
	pipeline   *pipeline.Pipeline
	pairCfg    pairing.Config
	jobManager *JobManager
	saveState  func() error // persists run state after a scan; may be nil
}

// NewScanHandler creates a new scan handler. saveState is called after every
// finished scan so accepted pairs survive a restart; pass nil to skip
// persistence.
func NewScanHandler(p *pipeline.Pipeline, pairCfg pairing.Config, jm *JobManager, saveState func() error) *ScanHandler {
	return &ScanHandler{
		pipeline:   p,
		pairCfg:    pairCfg,
		jobManager: jm,
		saveState:  saveState,
	}
}

// StartRequest represents a scan start request.
type StartRequest struct {
	ProjectIDs  []string `json:"project_ids"`
	Method      string   `json:"method"`
	DryRun      bool     `json:"dry_run"`
	Concurrency int      `json:"concurrency"`
}

// Start starts a new scan job.
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if len(req.ProjectIDs) == 0 {
		respondError(w, http.StatusBadRequest, "project_ids is required")
		return
	}

	if req.Method == "" {
		req.Method = pipeline.MethodAuto
	}
	switch req.Method {
	case pipeline.MethodAuto, pipeline.MethodFingerprint, pipeline.MethodBatch:
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown method: %s", sanitizeForLog(req.Method)))
		return
	}

	jobID := uuid.New().String()
	options := ScanJobOptions{
		Method:      req.Method,
		DryRun:      req.DryRun,
		Concurrency: req.Concurrency,
	}
	job := h.jobManager.CreateJob(jobID, req.ProjectIDs, options)

	go h.runScanJob(job)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      jobID,
		"project_ids": req.ProjectIDs,
		"status":      string(JobStatusPending),
	})
}

// Status returns the status of a scan job.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Events streams job events via SSE.
func (h *ScanHandler) Events(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	streamJobEvents(w, r, job)
}

// Cancel cancels a scan job.
func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runScanJob runs the scan job in the background.
func (h *ScanHandler) runScanJob(job *ScanJob) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	defer cancel()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Scan job started"})

	opts := pipeline.ScanOptions{
		Method:         job.Options.Method,
		Concurrency:    job.Options.Concurrency,
		DownloadImages: true,
		DryRun:         job.Options.DryRun,
		Quiet:          true,
		OnProgress: func(current, total int, photoID string) {
			job.mu.Lock()
			job.ProcessedPhotos = current
			job.TotalPhotos = total
			job.mu.Unlock()
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"current":  current,
					"total":    total,
					"photo_id": photoID,
				},
			})
		},
	}

	result, err := h.pipeline.Scan(ctx, job.ProjectIDs, h.pairCfg, opts)
	if err != nil {
		if ctx.Err() != nil {
			job.mu.Lock()
			job.Status = JobStatusCancelled
			job.mu.Unlock()
			job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
			return
		}
		h.failJob(job, fmt.Sprintf("scan failed: %v", err))
		return
	}

	if h.saveState != nil {
		if err := h.saveState(); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to persist run state: %w", err))
		}
	}

	errs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e.Error()
	}

	jobResult := &ScanJobResult{
		ProjectsScanned: result.ProjectsScanned,
		PhotosProcessed: result.PhotosProcessed,
		DraftsCreated:   result.DraftsCreated,
		Pairs:           result.PairsFound,
		Errors:          errs,
	}

	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.ProcessedPhotos = result.PhotosProcessed
	job.Result = jobResult
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: "completed", Data: jobResult})
}

func (h *ScanHandler) failJob(job *ScanJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
