package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// isJobTerminal reports whether a scan job can produce no further events.
func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// jobSnapshot is the opening event of a scan event stream, so subscribers
// that connect mid-run see the current progress immediately.
type jobSnapshot struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	TotalPhotos     int       `json:"total_photos"`
	ProcessedPhotos int       `json:"processed_photos"`
}

func (j *ScanJob) snapshot() jobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return jobSnapshot{
		JobID:           j.ID,
		Status:          j.Status,
		TotalPhotos:     j.TotalPhotos,
		ProcessedPhotos: j.ProcessedPhotos,
	}
}

// streamJobEvents streams a scan job's progress as server-sent events until
// the job reaches a terminal state, the client disconnects, or the listener
// channel closes.
func streamJobEvents(w http.ResponseWriter, r *http.Request, job *ScanJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := job.AddListener()
	defer job.RemoveListener(events)

	writeJobEvent(w, flusher, "status", job.snapshot())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			writeJobEvent(w, flusher, event.Type, event)
			if isJobTerminal(job.GetStatus()) {
				return
			}
		}
	}
}

// writeJobEvent writes one SSE frame. Payloads that fail to marshal are
// dropped rather than corrupting the stream.
func writeJobEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
