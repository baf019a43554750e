package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/monroehq/photo-pairer/internal/ai"
	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/content"
	"github.com/monroehq/photo-pairer/internal/database/postgres"
	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/state"
)

// fakeClassifier returns canned analyses keyed by photo id.
type fakeClassifier struct {
	analyses map[string]*ai.PhotoAnalysis
}

func (f *fakeClassifier) Name() string        { return "fake" }
func (f *fakeClassifier) GetUsage() *ai.Usage { return &ai.Usage{} }
func (f *fakeClassifier) ResetUsage()         {}

func (f *fakeClassifier) ClassifyPhoto(_ context.Context, _ []byte, photo *ai.PhotoContext) (*ai.PhotoAnalysis, error) {
	if a, ok := f.analyses[photo.PhotoID]; ok {
		return a, nil
	}
	return &ai.PhotoAnalysis{Classification: ai.LabelUnknown, Confidence: 0.5}, nil
}

func newMockCompanyCam(t *testing.T, photos []companycam.Photo, tags map[string][]companycam.Tag) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(companycam.Project{ID: "p1", Name: "Smith Residence"})
	})
	mux.HandleFunc("/projects/p1/photos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			json.NewEncoder(w).Encode([]companycam.Photo{})
			return
		}
		json.NewEncoder(w).Encode(photos)
	})
	mux.HandleFunc("/photos/", func(w http.ResponseWriter, r *http.Request) {
		// /photos/{id}/tags
		id := r.URL.Path[len("/photos/"):]
		id = id[:len(id)-len("/tags")]
		list := tags[id]
		if list == nil {
			list = []companycam.Tag{}
		}
		json.NewEncoder(w).Encode(list)
	})

	return httptest.NewServer(mux)
}

func newMockPlanner(t *testing.T, created *int, last *content.Post) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tables/cc_posts/rows", func(w http.ResponseWriter, r *http.Request) {
		var post content.Post
		if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		*created++
		if last != nil {
			*last = post
		}
		post.ID = "row-1"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(post)
	})

	return httptest.NewServer(mux)
}

func testPhoto(id string, capturedAt int64) companycam.Photo {
	return companycam.Photo{
		ID:         id,
		ProjectID:  "p1",
		CapturedAt: capturedAt,
		URIs: []companycam.PhotoURI{
			{Type: "original", URI: "https://cdn.example.com/" + id + ".jpg"},
		},
	}
}

func TestScan_FingerprintPairCreatesDraft(t *testing.T) {
	photos := []companycam.Photo{
		testPhoto("ph-before", 1000),
		testPhoto("ph-after", 1000+7200),
	}
	camServer := newMockCompanyCam(t, photos, nil)
	defer camServer.Close()

	var created int
	var lastPost content.Post
	plannerServer := newMockPlanner(t, &created, &lastPost)
	defer plannerServer.Close()

	cam, err := companycam.New(camServer.URL, "token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	planner, err := content.New(plannerServer.URL, "key", "")
	if err != nil {
		t.Fatalf("failed to create planner client: %v", err)
	}

	classifier := &fakeClassifier{analyses: map[string]*ai.PhotoAnalysis{
		"ph-before": {
			Classification: ai.LabelBefore, Confidence: 0.9,
			Tokens:     []string{"kitchen", "demolition", "cabinets"},
			MessyScore: 8, CleanScore: 1,
		},
		"ph-after": {
			Classification: ai.LabelAfter, Confidence: 0.9,
			Tokens:     []string{"kitchen", "demolition", "cabinets"},
			MessyScore: 1, CleanScore: 8,
		},
	}}

	tracker := state.NewTracker(100, 100)
	p := New(cam, classifier, planner, tracker, func() string { return "caption" })

	result, err := p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), ScanOptions{Quiet: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.PairsFound) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.PairsFound))
	}
	pair := result.PairsFound[0].Pair
	if pair.Method != pairing.MethodFingerprint {
		t.Errorf("expected fingerprint method, got %s", pair.Method)
	}
	if pair.Before.ID != "ph-before" || pair.After.ID != "ph-after" {
		t.Errorf("unexpected pair: %s-%s", pair.Before.ID, pair.After.ID)
	}
	if result.DraftsCreated != 1 || created != 1 {
		t.Errorf("expected 1 draft, got %d (server saw %d)", result.DraftsCreated, created)
	}
	if !strings.Contains(lastPost.Notes, "Fingerprint matched. Project: Smith Residence.") {
		t.Errorf("unexpected draft notes: %q", lastPost.Notes)
	}
	if len(lastPost.Tags) != 2 || lastPost.Tags[0] != "before-after" || lastPost.Tags[1] != "fingerprint" {
		t.Errorf("unexpected draft tags: %v", lastPost.Tags)
	}
	if len(lastPost.PhotoURLs) != 2 {
		t.Errorf("expected 2 photo URLs, got %v", lastPost.PhotoURLs)
	}

	// A second scan of the same project finds nothing new.
	result, err = p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), ScanOptions{Quiet: true})
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(result.PairsFound) != 0 || created != 1 {
		t.Errorf("second scan should be a no-op, found %d pairs, server saw %d drafts",
			len(result.PairsFound), created)
	}
}

func TestScan_BatchFallback(t *testing.T) {
	// Two sessions of two photos each, 4400s apart; no usable tags, so the
	// tag heuristic classifies everything unknown and fingerprint matching
	// finds nothing.
	photos := []companycam.Photo{
		testPhoto("s1-a", 0),
		testPhoto("s1-b", 300),
		testPhoto("s2-a", 5000),
		testPhoto("s2-b", 5300),
	}
	camServer := newMockCompanyCam(t, photos, map[string][]companycam.Tag{
		"s1-a": {{DisplayValue: "roofing"}},
	})
	defer camServer.Close()

	cam, err := companycam.New(camServer.URL, "token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	tracker := state.NewTracker(100, 100)
	p := New(cam, ai.NewTagClassifier(), nil, tracker, nil)

	result, err := p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(),
		ScanOptions{Quiet: true, DryRun: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.PairsFound) != 1 {
		t.Fatalf("expected 1 batch pair, got %d", len(result.PairsFound))
	}
	pair := result.PairsFound[0].Pair
	if pair.Method != pairing.MethodBatch {
		t.Errorf("expected batch method, got %s", pair.Method)
	}
	if pair.Before.ID != "s1-b" || pair.After.ID != "s2-b" {
		t.Errorf("expected batch medians s1-b and s2-b, got %s-%s",
			pair.Before.ID, pair.After.ID)
	}
	if result.DraftsCreated != 0 {
		t.Errorf("dry run must not create drafts, got %d", result.DraftsCreated)
	}
}

func TestScan_BatchDraftRecord(t *testing.T) {
	// Two sessions of two photos each; nothing classifies, so the batch
	// heuristic produces the pair and the draft must carry the batch sizes.
	photos := []companycam.Photo{
		testPhoto("s1-a", 0),
		testPhoto("s1-b", 300),
		testPhoto("s2-a", 5000),
		testPhoto("s2-b", 5300),
	}
	camServer := newMockCompanyCam(t, photos, nil)
	defer camServer.Close()

	var created int
	var lastPost content.Post
	plannerServer := newMockPlanner(t, &created, &lastPost)
	defer plannerServer.Close()

	cam, err := companycam.New(camServer.URL, "token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	planner, err := content.New(plannerServer.URL, "key", "")
	if err != nil {
		t.Fatalf("failed to create planner client: %v", err)
	}

	tracker := state.NewTracker(100, 100)
	p := New(cam, ai.NewTagClassifier(), planner, tracker, nil)

	result, err := p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), ScanOptions{Quiet: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.DraftsCreated != 1 || created != 1 {
		t.Fatalf("expected 1 draft, got %d (server saw %d)", result.DraftsCreated, created)
	}

	wantNotes := "Auto-generated. Project: Smith Residence. Before batch: 2 photos. After batch: 2 photos."
	if lastPost.Notes != wantNotes {
		t.Errorf("draft notes = %q, want %q", lastPost.Notes, wantNotes)
	}
	if len(lastPost.Tags) != 2 || lastPost.Tags[0] != "before-after" || lastPost.Tags[1] != "batch" {
		t.Errorf("unexpected draft tags: %v", lastPost.Tags)
	}
	if len(lastPost.PhotoURLs) != 2 {
		t.Errorf("expected 2 photo URLs, got %v", lastPost.PhotoURLs)
	}
}

func TestScan_CombinedPhotoDraftHasSingleURL(t *testing.T) {
	// A split-frame shot classified combined pairs with itself; the draft
	// must not repeat the same URL twice.
	photos := []companycam.Photo{testPhoto("ph-split", 1000)}
	camServer := newMockCompanyCam(t, photos, nil)
	defer camServer.Close()

	var created int
	var lastPost content.Post
	plannerServer := newMockPlanner(t, &created, &lastPost)
	defer plannerServer.Close()

	cam, err := companycam.New(camServer.URL, "token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	planner, err := content.New(plannerServer.URL, "key", "")
	if err != nil {
		t.Fatalf("failed to create planner client: %v", err)
	}

	classifier := &fakeClassifier{analyses: map[string]*ai.PhotoAnalysis{
		"ph-split": {
			Classification: ai.LabelCombined, Confidence: 0.9,
			Tokens:     []string{"kitchen", "demolition", "cabinets"},
			MessyScore: 8, CleanScore: 8,
		},
	}}

	tracker := state.NewTracker(100, 100)
	p := New(cam, classifier, planner, tracker, nil)

	result, err := p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), ScanOptions{Quiet: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.PairsFound) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.PairsFound))
	}
	pair := result.PairsFound[0].Pair
	if pair.Before.ID != "ph-split" || pair.After.ID != "ph-split" {
		t.Fatalf("expected self-pair, got %s-%s", pair.Before.ID, pair.After.ID)
	}
	if created != 1 {
		t.Fatalf("expected 1 draft, server saw %d", created)
	}
	if len(lastPost.PhotoURLs) != 1 {
		t.Errorf("combined draft should carry one URL, got %v", lastPost.PhotoURLs)
	}
}

// countingClassifier counts classification calls across goroutines.
type countingClassifier struct {
	inner ai.Classifier
	mu    sync.Mutex
	calls int
}

func (c *countingClassifier) Name() string        { return c.inner.Name() }
func (c *countingClassifier) GetUsage() *ai.Usage { return c.inner.GetUsage() }
func (c *countingClassifier) ResetUsage()         { c.inner.ResetUsage() }

func (c *countingClassifier) ClassifyPhoto(ctx context.Context, imageData []byte, photo *ai.PhotoContext) (*ai.PhotoAnalysis, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.ClassifyPhoto(ctx, imageData, photo)
}

// memAnalysisStore is an in-memory AnalysisStore.
type memAnalysisStore struct {
	mu sync.Mutex
	m  map[string]postgres.StoredAnalysis
}

func (s *memAnalysisStore) Get(_ context.Context, photoID string) (*postgres.StoredAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.m[photoID]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *memAnalysisStore) Save(_ context.Context, a postgres.StoredAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]postgres.StoredAnalysis)
	}
	s.m[a.PhotoID] = a
	return nil
}

func TestScan_AnalysisCacheSkipsClassifier(t *testing.T) {
	photos := []companycam.Photo{
		testPhoto("ph-before", 1000),
		testPhoto("ph-after", 1000+7200),
	}
	camServer := newMockCompanyCam(t, photos, nil)
	defer camServer.Close()

	cam, err := companycam.New(camServer.URL, "token")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	classifier := &countingClassifier{inner: &fakeClassifier{analyses: map[string]*ai.PhotoAnalysis{
		"ph-before": {
			Classification: ai.LabelBefore, Confidence: 0.9,
			Tokens:     []string{"kitchen", "demolition", "cabinets"},
			MessyScore: 8, CleanScore: 1,
		},
		"ph-after": {
			Classification: ai.LabelAfter, Confidence: 0.9,
			Tokens:     []string{"kitchen", "demolition", "cabinets"},
			MessyScore: 1, CleanScore: 8,
		},
	}}}

	store := &memAnalysisStore{}
	tracker := state.NewTracker(100, 100)
	p := New(cam, classifier, nil, tracker, nil).WithAnalysisStore(store, nil)

	// Dry runs never mark photos seen, so a rescan revisits both photos.
	opts := ScanOptions{Quiet: true, DryRun: true}
	result, err := p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.PairsFound) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.PairsFound))
	}
	if classifier.calls != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", classifier.calls)
	}

	result, err = p.Scan(context.Background(), []string{"p1"}, pairing.DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(result.PairsFound) != 1 {
		t.Fatalf("expected cached rescan to find the pair, got %d", len(result.PairsFound))
	}
	if classifier.calls != 2 {
		t.Errorf("expected cached rescan to skip the classifier, got %d calls", classifier.calls)
	}
}

func TestSplitCandidates(t *testing.T) {
	cfg := pairing.DefaultConfig()
	photos := []pairing.Photo{
		{ID: "b", Classification: pairing.LabelBefore},
		{ID: "a", Classification: pairing.LabelAfter},
		{ID: "c", Classification: pairing.LabelCombined},
		{ID: "o", Classification: pairing.LabelOther, Messy: 9, Clean: 9},
		{ID: "u1", Classification: pairing.LabelUnknown, Messy: 7, Clean: 2},
		{ID: "u2", Classification: pairing.LabelUnknown, Messy: 2, Clean: 7},
		{ID: "u3", Classification: pairing.LabelUnknown, Messy: 2, Clean: 2},
	}

	befores, afters := splitCandidates(photos, cfg)

	wantBefores := map[string]bool{"b": true, "c": true, "u1": true}
	if len(befores) != len(wantBefores) {
		t.Fatalf("expected %d befores, got %d", len(wantBefores), len(befores))
	}
	for _, photo := range befores {
		if !wantBefores[photo.ID] {
			t.Errorf("unexpected before candidate %s", photo.ID)
		}
	}

	wantAfters := map[string]bool{"a": true, "c": true, "u2": true}
	if len(afters) != len(wantAfters) {
		t.Fatalf("expected %d afters, got %d", len(wantAfters), len(afters))
	}
	for _, photo := range afters {
		if !wantAfters[photo.ID] {
			t.Errorf("unexpected after candidate %s", photo.ID)
		}
	}
}
