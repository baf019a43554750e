package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockTimeout = 5 * time.Second

type fileState struct {
	PhotoIDs []string `json:"photo_ids"`
	PairKeys []string `json:"pair_keys"`
	SavedAt  int64    `json:"saved_at"`
}

// FileStore persists a tracker as a JSON file next to a lock file, so
// concurrent invocations (a running daemon plus an ad-hoc CLI run) do not
// corrupt each other's state.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) acquire() (func(), error) {
	// The lock file lives next to the state file, so the directory must
	// exist before the lock can be taken.
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	locked, err := s.lock.TryLockContext(ctx, 100*time.Millisecond)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("could not acquire state lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state file %s is locked by another process", s.path)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// Load reads the persisted state into the tracker. A missing file is not an
// error; the tracker is simply left empty.
func (s *FileStore) Load(t *Tracker) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("could not parse state file %s: %w", s.path, err)
	}

	t.Restore(st.PhotoIDs, st.PairKeys)
	return nil
}

// Save writes the tracker's contents to disk. The file is written to a
// temporary name and renamed into place so readers never see a partial file.
func (s *FileStore) Save(t *Tracker) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	photoIDs, pairKeys := t.Snapshot()
	st := fileState{
		PhotoIDs: photoIDs,
		PairKeys: pairKeys,
		SavedAt:  time.Now().Unix(),
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("could not replace state file: %w", err)
	}

	return nil
}
