package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/monroehq/photo-pairer/internal/ai"
	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/config"
	"github.com/monroehq/photo-pairer/internal/content"
	"github.com/monroehq/photo-pairer/internal/database/postgres"
	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/pipeline"
	"github.com/monroehq/photo-pairer/internal/state"
)

// Classifier backend names accepted by --classifier.
const (
	classifierOpenAI = "openai"
	classifierGemini = "gemini"
	classifierTags   = "tags"
)

// Prices per 1M tokens, standard tier.
var (
	openAIPricing = ai.RequestPricing{Input: 0.40, Output: 1.60}
	geminiPricing = ai.RequestPricing{Input: 0.30, Output: 2.50}
)

// pairingConfig maps the environment-driven thresholds onto the engine config.
func pairingConfig(cfg *config.Config) pairing.Config {
	return pairing.Config{
		GapThreshold:         int64(cfg.Pairing.GapThresholdSeconds),
		MinBatchSize:         cfg.Pairing.MinBatchSize,
		MinGapBetweenBatches: int64(cfg.Pairing.MinGapSeconds),
		MinSimilarity:        cfg.Pairing.MinSimilarity,
		GPSToleranceMeters:   cfg.Pairing.GPSToleranceMeters,
		MinMessy:             pairing.DefaultConfig().MinMessy,
		MinClean:             pairing.DefaultConfig().MinClean,
		AcceptThreshold:      cfg.Pairing.AcceptThreshold,
	}
}

// newCompanyCamClient creates the photo source client from config.
func newCompanyCamClient(cfg *config.Config) (*companycam.Client, error) {
	if cfg.CompanyCam.Token == "" {
		return nil, errors.New("COMPANYCAM_TOKEN environment variable is required")
	}
	cam, err := companycam.New(cfg.CompanyCam.URL, cfg.CompanyCam.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create CompanyCam client: %w", err)
	}
	return cam, nil
}

// newClassifier picks a classification backend. An empty name selects the
// first backend with credentials configured, falling back to the tag
// heuristic which needs none.
func newClassifier(ctx context.Context, cfg *config.Config, name string) (ai.Classifier, error) {
	if name == "" {
		switch {
		case cfg.OpenAI.Token != "":
			name = classifierOpenAI
		case cfg.Gemini.APIKey != "":
			name = classifierGemini
		default:
			name = classifierTags
		}
	}

	switch name {
	case classifierOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return ai.NewOpenAIClassifier(cfg.OpenAI.Token, openAIPricing), nil
	case classifierGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		classifier, err := ai.NewGeminiClassifier(ctx, cfg.Gemini.APIKey, geminiPricing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini classifier: %w", err)
		}
		return classifier, nil
	case classifierTags:
		return ai.NewTagClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown classifier: %s", name)
	}
}

// newPlanner creates the content planner client, or nil when no planner is
// configured. A nil planner reports pairs without publishing drafts.
func newPlanner(cfg *config.Config) (*content.Client, error) {
	if cfg.Content.URL == "" {
		return nil, nil
	}
	planner, err := content.New(cfg.Content.URL, cfg.Content.APIKey, cfg.Content.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to create content planner client: %w", err)
	}
	return planner, nil
}

// runState holds the loaded run-state tracker and its persistence hooks.
type runState struct {
	tracker *state.Tracker
	save    func() error
	pool    *postgres.Pool // nil when state lives in the file store
}

// close releases the database pool if one was opened.
func (rs *runState) close() {
	if rs.pool != nil {
		rs.pool.Close()
	}
}

// loadRunState restores seen photos and published pairs from PostgreSQL or
// the JSON state file, per STATE_USE_POSTGRES.
func loadRunState(cfg *config.Config) (*runState, error) {
	tracker := state.NewTracker(cfg.State.MaxPhotoIDs, cfg.State.MaxPairKeys)

	if cfg.State.UsePostgres {
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required when STATE_USE_POSTGRES is set")
		}
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store := postgres.NewRunStateStore(pool)
		if err := store.Load(tracker); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to load run state: %w", err)
		}
		return &runState{
			tracker: tracker,
			save:    func() error { return store.Save(tracker) },
			pool:    pool,
		}, nil
	}

	store := state.NewFileStore(cfg.State.FilePath)
	if err := store.Load(tracker); err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}
	return &runState{
		tracker: tracker,
		save:    func() error { return store.Save(tracker) },
	}, nil
}

// scanDeps bundles everything a scan needs.
type scanDeps struct {
	pipeline   *pipeline.Pipeline
	cam        *companycam.Client
	classifier ai.Classifier
	state      *runState
}

// buildPipeline assembles the full scan pipeline. When run state lives in
// PostgreSQL the analysis cache rides on the same pool, and an OpenAI
// classifier doubles as the description embedder.
func buildPipeline(ctx context.Context, cfg *config.Config, classifierName string) (*scanDeps, error) {
	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := newClassifier(ctx, cfg, classifierName)
	if err != nil {
		return nil, err
	}

	planner, err := newPlanner(cfg)
	if err != nil {
		return nil, err
	}

	rs, err := loadRunState(cfg)
	if err != nil {
		return nil, err
	}

	caption := func() string { return cfg.Caption(time.Now().Day()) }
	p := pipeline.New(cam, classifier, planner, rs.tracker, caption)

	if rs.pool != nil {
		var embedder ai.Embedder
		if e, ok := classifier.(ai.Embedder); ok {
			embedder = e
		}
		p.WithAnalysisStore(postgres.NewAnalysisRepository(rs.pool), embedder)
	}

	return &scanDeps{pipeline: p, cam: cam, classifier: classifier, state: rs}, nil
}
