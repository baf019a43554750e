package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/monroehq/photo-pairer/internal/pairing"
)

// StoredAnalysis is one photo's persisted classifier output.
type StoredAnalysis struct {
	PhotoID        string
	ProjectID      string
	CapturedAt     int64
	Classification string
	Confidence     float64
	Description    string
	Tokens         []string
	Messy          int
	Clean          int
	Embedding      []float32 // nil when the classifier produced none
	Model          string
	CreatedAt      time.Time
}

// Photo converts the stored analysis into the pairing engine's photo shape.
// GPS and URL are not persisted; callers merge those from the photo source.
func (a StoredAnalysis) Photo() pairing.Photo {
	return pairing.Photo{
		ID:             a.PhotoID,
		ProjectID:      a.ProjectID,
		CapturedAt:     a.CapturedAt,
		Classification: a.Classification,
		Confidence:     a.Confidence,
		Tokens:         a.Tokens,
		Messy:          a.Messy,
		Clean:          a.Clean,
	}
}

// AnalysisRepository provides PostgreSQL-backed storage for photo analyses,
// so re-running a scan does not re-classify photos through a paid API.
type AnalysisRepository struct {
	pool *Pool
}

// NewAnalysisRepository creates a repository backed by the given pool.
func NewAnalysisRepository(pool *Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Get retrieves an analysis by photo id, returns nil if not found.
func (r *AnalysisRepository) Get(ctx context.Context, photoID string) (*StoredAnalysis, error) {
	query := `
		SELECT photo_id, project_id, captured_at, classification, confidence,
		       description, tokens, messy_score, clean_score, embedding, model, created_at
		FROM analyses
		WHERE photo_id = $1
	`

	var a StoredAnalysis
	var vec *pgvector.Vector

	err := r.pool.QueryRow(ctx, query, photoID).Scan(
		&a.PhotoID,
		&a.ProjectID,
		&a.CapturedAt,
		&a.Classification,
		&a.Confidence,
		&a.Description,
		pq.Array(&a.Tokens),
		&a.Messy,
		&a.Clean,
		&vec,
		&a.Model,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}

	if vec != nil {
		a.Embedding = vec.Slice()
	}
	return &a, nil
}

// Has checks if an analysis exists for the given photo id.
func (r *AnalysisRepository) Has(ctx context.Context, photoID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM analyses WHERE photo_id = $1)", photoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check analysis exists: %w", err)
	}
	return exists, nil
}

// Count returns the total number of stored analyses.
func (r *AnalysisRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return count, nil
}

// Save stores an analysis (upsert).
func (r *AnalysisRepository) Save(ctx context.Context, a StoredAnalysis) error {
	query := `
		INSERT INTO analyses (photo_id, project_id, captured_at, classification, confidence,
		                      description, tokens, messy_score, clean_score, embedding, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (photo_id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			captured_at = EXCLUDED.captured_at,
			classification = EXCLUDED.classification,
			confidence = EXCLUDED.confidence,
			description = EXCLUDED.description,
			tokens = EXCLUDED.tokens,
			messy_score = EXCLUDED.messy_score,
			clean_score = EXCLUDED.clean_score,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			created_at = NOW()
	`

	var vec any
	if a.Embedding != nil {
		v := pgvector.NewVector(a.Embedding)
		vec = v
	}

	_, err := r.pool.Exec(ctx, query,
		a.PhotoID, a.ProjectID, a.CapturedAt, a.Classification, a.Confidence,
		a.Description, pq.Array(a.Tokens), a.Messy, a.Clean, vec, a.Model)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// GetByProject retrieves all analyses for one project ordered by capture time.
func (r *AnalysisRepository) GetByProject(ctx context.Context, projectID string) ([]StoredAnalysis, error) {
	query := `
		SELECT photo_id, project_id, captured_at, classification, confidence,
		       description, tokens, messy_score, clean_score, embedding, model, created_at
		FROM analyses
		WHERE project_id = $1
		ORDER BY captured_at
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project analyses: %w", err)
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// FindSimilar returns the analyses whose embeddings are closest to the given
// one by cosine distance, nearest first.
func (r *AnalysisRepository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]StoredAnalysis, []float64, error) {
	query := `
		SELECT photo_id, project_id, captured_at, classification, confidence,
		       description, tokens, messy_score, clean_score, embedding, model, created_at,
		       embedding <=> $1::vector AS distance
		FROM analyses
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, query, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar analyses: %w", err)
	}
	defer rows.Close()

	var analyses []StoredAnalysis
	var distances []float64

	for rows.Next() {
		var a StoredAnalysis
		var v *pgvector.Vector
		var dist float64

		if err := rows.Scan(
			&a.PhotoID, &a.ProjectID, &a.CapturedAt, &a.Classification, &a.Confidence,
			&a.Description, pq.Array(&a.Tokens), &a.Messy, &a.Clean, &v, &a.Model, &a.CreatedAt,
			&dist,
		); err != nil {
			return nil, nil, fmt.Errorf("scan analysis: %w", err)
		}
		if v != nil {
			a.Embedding = v.Slice()
		}
		analyses = append(analyses, a)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate analyses: %w", err)
	}

	return analyses, distances, nil
}

// Delete removes the analysis for a photo.
func (r *AnalysisRepository) Delete(ctx context.Context, photoID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM analyses WHERE photo_id = $1", photoID); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

func scanAnalyses(rows *sql.Rows) ([]StoredAnalysis, error) {
	var analyses []StoredAnalysis

	for rows.Next() {
		var a StoredAnalysis
		var vec *pgvector.Vector

		if err := rows.Scan(
			&a.PhotoID, &a.ProjectID, &a.CapturedAt, &a.Classification, &a.Confidence,
			&a.Description, pq.Array(&a.Tokens), &a.Messy, &a.Clean, &vec, &a.Model, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if vec != nil {
			a.Embedding = vec.Slice()
		}
		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}

	return analyses, nil
}
