package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/monroehq/photo-pairer/internal/ai"
	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/pipeline"
	"github.com/monroehq/photo-pairer/internal/state"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// setupMockCompanyCamServer creates a mock CompanyCam server for handler tests
func setupMockCompanyCamServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}

	return httptest.NewServer(mux)
}

// createCompanyCamClient creates a CompanyCam client connected to a mock server
func createCompanyCamClient(t *testing.T, server *httptest.Server) *companycam.Client {
	t.Helper()
	cam, err := companycam.New(server.URL, "test-token")
	if err != nil {
		t.Fatalf("failed to create CompanyCam client: %v", err)
	}
	return cam
}

// createScanHandlerForTest wires a scan handler to a pipeline backed by the
// given CompanyCam client, the tag heuristic classifier and no planner.
func createScanHandlerForTest(cam *companycam.Client) *ScanHandler {
	tracker := state.NewTracker(100, 100)
	p := pipeline.New(cam, ai.NewTagClassifier(), nil, tracker, nil)
	return NewScanHandler(p, pairing.DefaultConfig(), NewJobManager(), nil)
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
