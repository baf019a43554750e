package postgres

import (
	"context"
	"fmt"

	"github.com/monroehq/photo-pairer/internal/state"
)

// RunStateStore persists a run-state tracker in PostgreSQL, for deployments
// where a local state file would not survive (containers, multiple hosts).
type RunStateStore struct {
	pool *Pool
}

// NewRunStateStore creates a store backed by the given pool.
func NewRunStateStore(pool *Pool) *RunStateStore {
	return &RunStateStore{pool: pool}
}

// Load reads the persisted run state into the tracker, oldest entries first
// so the tracker's eviction order matches the original insertion order.
func (s *RunStateStore) Load(t *state.Tracker) error {
	ctx := context.Background()

	photoIDs, err := s.loadColumn(ctx, "SELECT photo_id FROM seen_photos ORDER BY seen_at, photo_id")
	if err != nil {
		return fmt.Errorf("load seen photos: %w", err)
	}

	pairKeys, err := s.loadColumn(ctx, "SELECT pair_key FROM published_pairs ORDER BY published_at, pair_key")
	if err != nil {
		return fmt.Errorf("load published pairs: %w", err)
	}

	t.Restore(photoIDs, pairKeys)
	return nil
}

// Save writes the tracker's contents, replacing the stored state so database
// rows evicted from the bounded tracker are dropped too.
func (s *RunStateStore) Save(t *state.Tracker) error {
	ctx := context.Background()
	photoIDs, pairKeys := t.Snapshot()

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM seen_photos"); err != nil {
		return fmt.Errorf("clear seen photos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM published_pairs"); err != nil {
		return fmt.Errorf("clear published pairs: %w", err)
	}

	photoStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO seen_photos (photo_id, seen_at) VALUES ($1, NOW() + ($2 * interval '1 microsecond'))")
	if err != nil {
		return fmt.Errorf("prepare seen photo insert: %w", err)
	}
	defer photoStmt.Close()

	// The microsecond offset preserves insertion order across rows saved in
	// the same transaction.
	for i, id := range photoIDs {
		if _, err := photoStmt.ExecContext(ctx, id, i); err != nil {
			return fmt.Errorf("insert seen photo %s: %w", id, err)
		}
	}

	pairStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO published_pairs (pair_key, published_at) VALUES ($1, NOW() + ($2 * interval '1 microsecond'))")
	if err != nil {
		return fmt.Errorf("prepare pair insert: %w", err)
	}
	defer pairStmt.Close()

	for i, key := range pairKeys {
		if _, err := pairStmt.ExecContext(ctx, key, i); err != nil {
			return fmt.Errorf("insert pair key %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *RunStateStore) loadColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
