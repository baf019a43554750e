package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/config"
	"github.com/monroehq/photo-pairer/internal/database/postgres"
	"github.com/monroehq/photo-pairer/internal/fingerprint"
)

var similarCmd = &cobra.Command{
	Use:   "similar <photo-id>",
	Short: "Find photos with similar scene descriptions",
	Long: `Finds analyzed photos whose description embeddings are closest to the
given photo's. Requires PostgreSQL-backed analyses with embeddings, which
are written during scans when an OpenAI classifier is in use.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", 10, "Number of similar photos to return")
	similarCmd.Flags().Bool("local", false, "Search an in-memory HNSW index over the photo's project instead of the database")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	photoID := args[0]
	ctx := cmd.Context()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	repo := postgres.NewAnalysisRepository(pool)

	analysis, err := repo.Get(ctx, photoID)
	if err != nil {
		return err
	}
	if analysis == nil {
		return fmt.Errorf("no analysis stored for photo %s", photoID)
	}
	if analysis.Embedding == nil {
		return fmt.Errorf("photo %s has no embedding; re-scan with the OpenAI classifier", photoID)
	}

	limit := mustGetInt(cmd, "limit")

	var ids []string
	var sims []float64
	if mustGetBool(cmd, "local") {
		ids, sims, err = searchProjectIndex(cmd, repo, analysis, limit)
	} else {
		ids, sims, err = searchDatabase(cmd, repo, analysis, limit)
	}
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Println("No similar photos found.")
		return nil
	}

	rows := make([][]string, len(ids))
	for i := range ids {
		rows[i] = []string{ids[i], fmt.Sprintf("%.4f", sims[i])}
	}
	fmt.Println(renderTable(
		[]string{"PHOTO", "SIMILARITY"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	return nil
}

// searchDatabase runs a pgvector nearest-neighbor query over all analyses.
func searchDatabase(cmd *cobra.Command, repo *postgres.AnalysisRepository, analysis *postgres.StoredAnalysis, limit int) ([]string, []float64, error) {
	// Fetch one extra row since the query photo is its own nearest neighbor.
	matches, distances, err := repo.FindSimilar(cmd.Context(), analysis.Embedding, limit+1)
	if err != nil {
		return nil, nil, err
	}

	var ids []string
	var sims []float64
	for i, m := range matches {
		if m.PhotoID == analysis.PhotoID {
			continue
		}
		ids = append(ids, m.PhotoID)
		sims = append(sims, 1-distances[i])
	}
	if len(ids) > limit {
		ids, sims = ids[:limit], sims[:limit]
	}
	return ids, sims, nil
}

// searchProjectIndex builds an in-memory HNSW index over the photo's project
// and searches it, avoiding a sequential scan on large tables.
func searchProjectIndex(cmd *cobra.Command, repo *postgres.AnalysisRepository, analysis *postgres.StoredAnalysis, limit int) ([]string, []float64, error) {
	siblings, err := repo.GetByProject(cmd.Context(), analysis.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	index := fingerprint.NewIndex()
	for _, s := range siblings {
		if s.Embedding != nil {
			index.Add(s.PhotoID, s.Embedding)
		}
	}

	ids, sims, err := index.Search(analysis.Embedding, limit+1)
	if err != nil {
		return nil, nil, err
	}

	var outIDs []string
	var outSims []float64
	for i := range ids {
		if ids[i] == analysis.PhotoID {
			continue
		}
		outIDs = append(outIDs, ids[i])
		outSims = append(outSims, sims[i])
	}
	if len(outIDs) > limit {
		outIDs, outSims = outIDs[:limit], outSims[:limit]
	}
	return outIDs, outSims, nil
}
