package state

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestTracker_SeenAndPaired(t *testing.T) {
	tr := NewTracker(10, 10)

	if tr.Seen("ph1") {
		t.Error("fresh tracker should not know ph1")
	}
	tr.MarkSeen("ph1")
	if !tr.Seen("ph1") {
		t.Error("ph1 should be seen after marking")
	}

	if tr.AlreadyPaired("a-b") {
		t.Error("fresh tracker should not know pair a-b")
	}
	tr.MarkPaired("a-b")
	if !tr.AlreadyPaired("a-b") {
		t.Error("pair a-b should be known after marking")
	}
}

func TestTracker_EvictsOldestPhotoIDs(t *testing.T) {
	tr := NewTracker(3, 3)

	for i := 0; i < 5; i++ {
		tr.MarkSeen(fmt.Sprintf("ph%d", i))
	}

	if tr.Seen("ph0") || tr.Seen("ph1") {
		t.Error("oldest entries should be evicted at capacity")
	}
	for i := 2; i < 5; i++ {
		if !tr.Seen(fmt.Sprintf("ph%d", i)) {
			t.Errorf("ph%d should survive eviction", i)
		}
	}
	if photos, _ := tr.Counts(); photos != 3 {
		t.Errorf("expected 3 tracked photos, got %d", photos)
	}
}

func TestTracker_EvictsOldestPairKeys(t *testing.T) {
	tr := NewTracker(10, 2)

	tr.MarkPaired("k1")
	tr.MarkPaired("k2")
	tr.MarkPaired("k3")

	if tr.AlreadyPaired("k1") {
		t.Error("k1 should be evicted")
	}
	if !tr.AlreadyPaired("k2") || !tr.AlreadyPaired("k3") {
		t.Error("k2 and k3 should survive")
	}
}

func TestTracker_DuplicateMarkDoesNotRefreshAge(t *testing.T) {
	tr := NewTracker(2, 2)

	tr.MarkSeen("ph1")
	tr.MarkSeen("ph2")
	tr.MarkSeen("ph1") // no-op, ph1 stays oldest
	tr.MarkSeen("ph3") // evicts ph1

	if tr.Seen("ph1") {
		t.Error("re-marking must not refresh ph1's age")
	}
	if !tr.Seen("ph2") || !tr.Seen("ph3") {
		t.Error("ph2 and ph3 should survive")
	}
}

func TestTracker_SnapshotOrder(t *testing.T) {
	tr := NewTracker(10, 10)
	tr.MarkSeen("b")
	tr.MarkSeen("a")
	tr.MarkSeen("c")
	tr.MarkPaired("p2")
	tr.MarkPaired("p1")

	photoIDs, pairKeys := tr.Snapshot()

	wantPhotos := []string{"b", "a", "c"}
	for i, id := range wantPhotos {
		if photoIDs[i] != id {
			t.Errorf("photo order mismatch at %d: want %s, got %s", i, id, photoIDs[i])
		}
	}
	wantPairs := []string{"p2", "p1"}
	for i, key := range wantPairs {
		if pairKeys[i] != key {
			t.Errorf("pair order mismatch at %d: want %s, got %s", i, key, pairKeys[i])
		}
	}
}

func TestTracker_RestoreAppliesBounds(t *testing.T) {
	tr := NewTracker(2, 2)

	tr.Restore(
		[]string{"ph1", "ph2", "ph3", "ph2"},
		[]string{"k1", "k2", "k3"},
	)

	if tr.Seen("ph1") {
		t.Error("ph1 should be trimmed by the bound")
	}
	if !tr.Seen("ph2") || !tr.Seen("ph3") {
		t.Error("newest photo ids should survive restore")
	}
	if tr.AlreadyPaired("k1") {
		t.Error("k1 should be trimmed by the bound")
	}
	if !tr.AlreadyPaired("k2") || !tr.AlreadyPaired("k3") {
		t.Error("newest pair keys should survive restore")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	tr := NewTracker(10, 10)
	tr.MarkSeen("ph1")
	tr.MarkSeen("ph2")
	tr.MarkPaired("ph1-ph2")

	if err := store.Save(tr); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	restored := NewTracker(10, 10)
	if err := store.Load(restored); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !restored.Seen("ph1") || !restored.Seen("ph2") {
		t.Error("restored tracker lost photo ids")
	}
	if !restored.AlreadyPaired("ph1-ph2") {
		t.Error("restored tracker lost pair key")
	}

	photoIDs, _ := restored.Snapshot()
	if len(photoIDs) != 2 || photoIDs[0] != "ph1" {
		t.Errorf("restored order mismatch: %v", photoIDs)
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	tr := NewTracker(10, 10)
	if err := store.Load(tr); err != nil {
		t.Fatalf("loading a missing file should not fail: %v", err)
	}
	if photos, pairs := tr.Counts(); photos != 0 || pairs != 0 {
		t.Errorf("expected empty tracker, got %d photos / %d pairs", photos, pairs)
	}
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	store := NewFileStore(path)

	if err := store.Save(NewTracker(10, 10)); err != nil {
		t.Fatalf("save into missing directory failed: %v", err)
	}
	if err := store.Load(NewTracker(10, 10)); err != nil {
		t.Fatalf("load after save failed: %v", err)
	}
}
