package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestScanHandler_Start_Success(t *testing.T) {
	server := setupMockCompanyCamServer(t, map[string]http.HandlerFunc{
		"/projects/p1/photos": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]any{})
		},
	})
	defer server.Close()

	cam := createCompanyCamClient(t, server)
	handler := createScanHandlerForTest(cam)

	body := bytes.NewBufferString(`{"project_ids": ["p1"], "dry_run": true}`)
	req := httptest.NewRequest("POST", "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusAccepted)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)

	jobID, _ := result["job_id"].(string)
	if jobID == "" {
		t.Fatal("expected non-empty job_id")
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got '%v'", result["status"])
	}

	// The background job scans an empty project and finishes quickly.
	deadline := time.After(5 * time.Second)
	for {
		job := handler.jobManager.GetJob(jobID)
		if job != nil && isJobTerminal(job.GetStatus()) {
			if job.GetStatus() != JobStatusCompleted {
				t.Fatalf("expected completed job, got %s (error: %s)", job.GetStatus(), job.Error)
			}
			if job.Result == nil || job.Result.ProjectsScanned != 1 {
				t.Fatalf("expected result with 1 project scanned, got %+v", job.Result)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("job did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScanHandler_Start_MissingProjectIDs(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	body := bytes.NewBufferString(`{"dry_run": true}`)
	req := httptest.NewRequest("POST", "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "project_ids is required")
}

func TestScanHandler_Start_InvalidJSON(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	body := bytes.NewBufferString(`{invalid json}`)
	req := httptest.NewRequest("POST", "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid request body")
}

func TestScanHandler_Start_UnknownMethod(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	body := bytes.NewBufferString(`{"project_ids": ["p1"], "method": "magic"}`)
	req := httptest.NewRequest("POST", "/api/v1/scan", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "unknown method: magic")
}

func TestScanHandler_Status_Success(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	job := handler.jobManager.CreateJob("test-job-id", []string{"p1"}, ScanJobOptions{DryRun: true})

	req := httptest.NewRequest("GET", "/api/v1/scan/test-job-id", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "test-job-id"})
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)

	if result["id"] != job.ID {
		t.Errorf("expected job ID '%s', got '%v'", job.ID, result["id"])
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got '%v'", result["status"])
	}
}

func TestScanHandler_Status_MissingJobID(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	req := httptest.NewRequest("GET", "/api/v1/scan/", nil)
	req = requestWithChiParams(req, map[string]string{})
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "missing job ID")
}

func TestScanHandler_Status_NotFound(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	req := httptest.NewRequest("GET", "/api/v1/scan/nonexistent", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "nonexistent"})
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "job not found")
}

func TestScanHandler_Cancel_Success(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	handler.jobManager.CreateJob("test-job-id", []string{"p1"}, ScanJobOptions{})

	req := httptest.NewRequest("DELETE", "/api/v1/scan/test-job-id", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "test-job-id"})
	recorder := httptest.NewRecorder()

	handler.Cancel(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]bool
	parseJSONResponse(t, recorder, &result)
	if !result["cancelled"] {
		t.Error("expected cancelled=true")
	}

	job := handler.jobManager.GetJob("test-job-id")
	if job.GetStatus() != JobStatusCancelled {
		t.Errorf("expected cancelled status, got %s", job.GetStatus())
	}
}

func TestScanHandler_Cancel_NotFound(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	req := httptest.NewRequest("DELETE", "/api/v1/scan/nonexistent", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "nonexistent"})
	recorder := httptest.NewRecorder()

	handler.Cancel(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "job not found")
}

func TestScanHandler_Events_NotFound(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	req := httptest.NewRequest("GET", "/api/v1/scan/nonexistent/events", nil)
	req = requestWithChiParams(req, map[string]string{"jobId": "nonexistent"})
	recorder := httptest.NewRecorder()

	handler.Events(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "job not found")
}

func TestScanHandler_Events_OpensWithSnapshot(t *testing.T) {
	handler := createScanHandlerForTest(nil)

	job := handler.jobManager.CreateJob("job-1", []string{"p1"}, ScanJobOptions{})
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.TotalPhotos = 4
	job.ProcessedPhotos = 2
	job.mu.Unlock()

	// A pre-cancelled request context makes the stream return right after
	// the opening snapshot.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/api/v1/scan/job-1/events", nil).WithContext(ctx)
	req = requestWithChiParams(req, map[string]string{"jobId": "job-1"})
	recorder := httptest.NewRecorder()

	handler.Events(recorder, req)

	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %q", ct)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "event: status") {
		t.Errorf("expected an opening status event, got %q", body)
	}
	for _, want := range []string{`"job_id":"job-1"`, `"status":"running"`, `"total_photos":4`, `"processed_photos":2`} {
		if !strings.Contains(body, want) {
			t.Errorf("snapshot missing %s: %q", want, body)
		}
	}
}

func TestJobManager_CreateAndGet(t *testing.T) {
	jm := NewJobManager()

	options := ScanJobOptions{DryRun: true, Concurrency: 5}
	job := jm.CreateJob("job123", []string{"p1", "p2"}, options)

	if job.ID != "job123" {
		t.Errorf("expected job ID 'job123', got '%s'", job.ID)
	}
	if len(job.ProjectIDs) != 2 {
		t.Errorf("expected 2 project ids, got %d", len(job.ProjectIDs))
	}
	if job.Status != JobStatusPending {
		t.Errorf("expected status pending, got %v", job.Status)
	}

	retrieved := jm.GetJob("job123")
	if retrieved == nil {
		t.Fatal("expected to retrieve job")
	}
	if retrieved.ID != job.ID {
		t.Error("retrieved job should match created job")
	}
}

func TestJobManager_DeleteJob(t *testing.T) {
	jm := NewJobManager()
	jm.CreateJob("job123", []string{"p1"}, ScanJobOptions{})

	jm.DeleteJob("job123")
	if jm.GetJob("job123") != nil {
		t.Error("expected nil after delete")
	}
}

func TestEventBroadcaster_SendAndRemove(t *testing.T) {
	var b EventBroadcaster

	ch := b.AddListener()
	b.SendEvent(JobEvent{Type: "progress"})

	select {
	case ev := <-ch:
		if ev.Type != "progress" {
			t.Errorf("expected progress event, got %s", ev.Type)
		}
	default:
		t.Fatal("expected buffered event")
	}

	b.RemoveListener(ch)
	if _, open := <-ch; open {
		t.Error("expected channel closed after removal")
	}
}

func TestIsJobTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, status := range terminal {
		if !isJobTerminal(status) {
			t.Errorf("expected %s to be terminal", status)
		}
	}
	for _, status := range []JobStatus{JobStatusPending, JobStatusRunning} {
		if isJobTerminal(status) {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}
