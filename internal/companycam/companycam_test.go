package companycam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func setupMockServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`[
				{"id":"p1","name":"Smith Residence","status":"active","photo_count":12},
				{"id":"p2","name":"Oak Street Cleanup","status":"active","photo_count":4}
			]`))
			return
		}
		w.Write([]byte(`[]`))
	})

	mux.HandleFunc("/projects/p1/photos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`[
				{
					"id":"ph1","project_id":"p1","captured_at":1700000000,
					"coordinates":{"lat":36.1,"lon":-86.7},
					"uris":[
						{"type":"thumbnail","uri":"https://cdn.example.com/ph1_thumb.jpg"},
						{"type":"original","uri":"https://cdn.example.com/ph1.jpg"}
					]
				},
				{
					"id":"ph2","project_id":"p1","captured_at":1700003600,
					"uris":[{"type":"web","uri":"https://cdn.example.com/ph2_web.jpg"}]
				}
			]`))
			return
		}
		w.Write([]byte(`[]`))
	})

	mux.HandleFunc("/photos/ph1/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"t1","display_value":"Before","value":"before"}]`))
	})

	mux.HandleFunc("/photos/ph1/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"c1","content":"paired"}`))
	})

	return httptest.NewServer(mux)
}

func TestGetAllProjects(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, err := New(server.URL, "test-token")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	projects, err := c.GetAllProjects(context.Background())
	if err != nil {
		t.Fatalf("GetAllProjects failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].Name != "Smith Residence" {
		t.Errorf("expected 'Smith Residence', got '%s'", projects[0].Name)
	}
}

func TestGetAllProjectPhotos(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, err := New(server.URL, "test-token")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	photos, err := c.GetAllProjectPhotos(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetAllProjectPhotos failed: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(photos))
	}

	if photos[0].OriginalURL() != "https://cdn.example.com/ph1.jpg" {
		t.Errorf("expected original URI, got '%s'", photos[0].OriginalURL())
	}
	if !photos[0].HasGPS() {
		t.Error("expected ph1 to have GPS")
	}
	if photos[1].HasGPS() {
		t.Error("expected ph2 to have no GPS")
	}
	// Falls back to the first variant when no original exists.
	if photos[1].OriginalURL() != "https://cdn.example.com/ph2_web.jpg" {
		t.Errorf("expected fallback URI, got '%s'", photos[1].OriginalURL())
	}
}

func TestGetPhotoTags(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, err := New(server.URL, "test-token")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tags, err := c.GetPhotoTags(context.Background(), "ph1")
	if err != nil {
		t.Fatalf("GetPhotoTags failed: %v", err)
	}
	if len(tags) != 1 || tags[0].Value != "before" {
		t.Errorf("unexpected tags: %+v", tags)
	}
}

func TestAddPhotoComment(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, err := New(server.URL, "test-token")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	comment, err := c.AddPhotoComment(context.Background(), "ph1", "paired")
	if err != nil {
		t.Fatalf("AddPhotoComment failed: %v", err)
	}
	if comment.ID != "c1" {
		t.Errorf("expected comment id 'c1', got '%s'", comment.ID)
	}
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New("https://api.example.com/v2", ""); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := New("", "token"); err == nil {
		t.Error("expected error for empty URL")
	}
}
