// Package state tracks which photos and pairs previous runs already handled,
// so repeated scans of the same projects do not produce duplicate posts.
package state

import "sync"

// Default retention bounds.
const (
	DefaultMaxPhotoIDs = 1000
	DefaultMaxPairKeys = 200
)

// Tracker remembers processed photo ids and published pair keys in bounded,
// insertion-ordered sets. When a set reaches its capacity the oldest entry is
// evicted first, so very old work may be redone but the memory footprint
// stays flat. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	maxPhotoIDs int
	maxPairKeys int

	photoIDs   map[string]struct{}
	photoOrder []string

	pairKeys  map[string]struct{}
	pairOrder []string
}

// NewTracker creates an empty tracker with the given retention bounds.
// Non-positive bounds fall back to the defaults.
func NewTracker(maxPhotoIDs, maxPairKeys int) *Tracker {
	if maxPhotoIDs <= 0 {
		maxPhotoIDs = DefaultMaxPhotoIDs
	}
	if maxPairKeys <= 0 {
		maxPairKeys = DefaultMaxPairKeys
	}
	return &Tracker{
		maxPhotoIDs: maxPhotoIDs,
		maxPairKeys: maxPairKeys,
		photoIDs:    make(map[string]struct{}),
		pairKeys:    make(map[string]struct{}),
	}
}

// Seen reports whether the photo id was recorded by a previous MarkSeen.
func (t *Tracker) Seen(photoID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.photoIDs[photoID]
	return ok
}

// MarkSeen records a processed photo id. Re-marking an existing id is a
// no-op and does not refresh its age.
func (t *Tracker) MarkSeen(photoID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.photoIDs[photoID]; ok {
		return
	}
	t.photoIDs[photoID] = struct{}{}
	t.photoOrder = append(t.photoOrder, photoID)

	for len(t.photoOrder) > t.maxPhotoIDs {
		oldest := t.photoOrder[0]
		t.photoOrder = t.photoOrder[1:]
		delete(t.photoIDs, oldest)
	}
}

// AlreadyPaired reports whether the pair key was recorded by a previous
// MarkPaired.
func (t *Tracker) AlreadyPaired(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pairKeys[key]
	return ok
}

// MarkPaired records a published pair key. Re-marking an existing key is a
// no-op and does not refresh its age.
func (t *Tracker) MarkPaired(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pairKeys[key]; ok {
		return
	}
	t.pairKeys[key] = struct{}{}
	t.pairOrder = append(t.pairOrder, key)

	for len(t.pairOrder) > t.maxPairKeys {
		oldest := t.pairOrder[0]
		t.pairOrder = t.pairOrder[1:]
		delete(t.pairKeys, oldest)
	}
}

// Counts returns the number of tracked photo ids and pair keys.
func (t *Tracker) Counts() (photos, pairs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.photoOrder), len(t.pairOrder)
}

// Snapshot returns the tracked ids and keys in insertion order. The returned
// slices are copies.
func (t *Tracker) Snapshot() (photoIDs, pairKeys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	photoIDs = make([]string, len(t.photoOrder))
	copy(photoIDs, t.photoOrder)
	pairKeys = make([]string, len(t.pairOrder))
	copy(pairKeys, t.pairOrder)
	return photoIDs, pairKeys
}

// Restore replaces the tracker's contents with the given ids and keys,
// preserving their order and applying the retention bounds. Duplicates keep
// their first occurrence.
func (t *Tracker) Restore(photoIDs, pairKeys []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.photoIDs = make(map[string]struct{})
	t.photoOrder = t.photoOrder[:0]
	for _, id := range photoIDs {
		if _, ok := t.photoIDs[id]; ok {
			continue
		}
		t.photoIDs[id] = struct{}{}
		t.photoOrder = append(t.photoOrder, id)
	}
	for len(t.photoOrder) > t.maxPhotoIDs {
		oldest := t.photoOrder[0]
		t.photoOrder = t.photoOrder[1:]
		delete(t.photoIDs, oldest)
	}

	t.pairKeys = make(map[string]struct{})
	t.pairOrder = t.pairOrder[:0]
	for _, key := range pairKeys {
		if _, ok := t.pairKeys[key]; ok {
			continue
		}
		t.pairKeys[key] = struct{}{}
		t.pairOrder = append(t.pairOrder, key)
	}
	for len(t.pairOrder) > t.maxPairKeys {
		oldest := t.pairOrder[0]
		t.pairOrder = t.pairOrder[1:]
		delete(t.pairKeys, oldest)
	}
}
