package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/monroehq/photo-pairer/internal/pipeline"
)

// eventChannelBuffer is the per-listener event buffer; slow listeners drop
// events rather than block the job.
const eventChannelBuffer = 64

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ScanJob represents an async pairing scan over one or more projects.
type ScanJob struct {
	EventBroadcaster

	ID              string         `json:"id"`
	ProjectIDs      []string       `json:"project_ids"`
	Status          JobStatus      `json:"status"`
	TotalPhotos     int            `json:"total_photos"`
	ProcessedPhotos int            `json:"processed_photos"`
	Error           string         `json:"error,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Options         ScanJobOptions `json:"options"`
	Result          *ScanJobResult `json:"result,omitempty"`
}

// GetStatus returns the current job status.
func (j *ScanJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the scan job.
func (j *ScanJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// ScanJobOptions represents scan job options.
type ScanJobOptions struct {
	Method      string `json:"method"`
	DryRun      bool   `json:"dry_run"`
	Concurrency int    `json:"concurrency"`
}

// ScanJobResult represents the result of a scan job.
type ScanJobResult struct {
	ProjectsScanned int                  `json:"projects_scanned"`
	PhotosProcessed int                  `json:"photos_processed"`
	DraftsCreated   int                  `json:"drafts_created"`
	Pairs           []pipeline.FoundPair `json:"pairs,omitempty"`
	Errors          []string             `json:"errors,omitempty"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// JobManager manages async scan jobs.
type JobManager struct {
	jobs map[string]*ScanJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ScanJob),
	}
}

// CreateJob creates a new scan job.
func (m *JobManager) CreateJob(id string, projectIDs []string, options ScanJobOptions) *ScanJob {
	job := &ScanJob{
		ID:         id,
		ProjectIDs: projectIDs,
		Status:     JobStatusPending,
		StartedAt:  time.Now(),
		Options:    options,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *ScanJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*ScanJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*ScanJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
