// Package pipeline runs the full scan: fetch photos, classify them, find
// before/after pairs and hand accepted pairs to the content planner.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/monroehq/photo-pairer/internal/ai"
	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/content"
	"github.com/monroehq/photo-pairer/internal/database/postgres"
	"github.com/monroehq/photo-pairer/internal/fingerprint"
	"github.com/monroehq/photo-pairer/internal/metrics"
	"github.com/monroehq/photo-pairer/internal/pairing"
	"github.com/monroehq/photo-pairer/internal/state"
)

// Match method selection for a scan.
const (
	MethodAuto        = "auto"
	MethodFingerprint = "fingerprint"
	MethodBatch       = "batch"
)

// AnalysisStore caches classifier output between runs so photos are not
// re-classified through a paid API.
type AnalysisStore interface {
	Get(ctx context.Context, photoID string) (*postgres.StoredAnalysis, error)
	Save(ctx context.Context, a postgres.StoredAnalysis) error
}

type Pipeline struct {
	cam        *companycam.Client
	classifier ai.Classifier
	planner    *content.Client // nil in dry runs without a planner configured
	tracker    *state.Tracker
	caption    func() string

	analyses AnalysisStore // optional
	embedder ai.Embedder   // optional
}

// ScanOptions control one pipeline run.
type ScanOptions struct {
	Method         string // auto, fingerprint or batch
	Concurrency    int    // parallel classification requests, default 5
	DownloadImages bool   // fetch image bytes for the classifier
	DryRun         bool   // find pairs but create no drafts
	Quiet          bool   // suppress the progress bar
	OnProgress     func(current, total int, photoID string)
}

// FoundPair is one accepted pair with its project context.
type FoundPair struct {
	ProjectID string
	Pair      pairing.Pair
}

// ScanResult summarizes one run.
type ScanResult struct {
	ProjectsScanned int
	PhotosProcessed int
	PairsFound      []FoundPair
	DraftsCreated   int
	Errors          []error
}

// New creates a pipeline. The planner may be nil; pairs are then reported but
// never published. The caption function supplies the draft text for each pair.
func New(cam *companycam.Client, classifier ai.Classifier, planner *content.Client, tracker *state.Tracker, caption func() string) *Pipeline {
	if caption == nil {
		caption = func() string { return "Before and after." }
	}
	return &Pipeline{
		cam:        cam,
		classifier: classifier,
		planner:    planner,
		tracker:    tracker,
		caption:    caption,
	}
}

// WithAnalysisStore attaches a persistent analysis cache and an optional
// description embedder. Cached photos skip classification entirely.
func (p *Pipeline) WithAnalysisStore(store AnalysisStore, embedder ai.Embedder) *Pipeline {
	p.analyses = store
	p.embedder = embedder
	return p
}

// Scan runs the pipeline over the given projects, using the pairing
// thresholds in cfg.
func (p *Pipeline) Scan(ctx context.Context, projectIDs []string, cfg pairing.Config, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}
	start := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	if opts.Method == "" {
		opts.Method = MethodAuto
	}

	for _, projectID := range projectIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := p.scanProject(ctx, projectID, cfg, opts, result); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("project %s: %w", projectID, err))
			continue
		}
		result.ProjectsScanned++
	}

	photos, pairs := p.tracker.Counts()
	metrics.TrackedPhotos.Set(float64(photos))
	metrics.TrackedPairs.Set(float64(pairs))

	return result, nil
}

func (p *Pipeline) scanProject(ctx context.Context, projectID string, cfg pairing.Config, opts ScanOptions, result *ScanResult) error {
	camPhotos, err := p.cam.GetAllProjectPhotos(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to fetch photos: %w", err)
	}
	metrics.PhotosScanned.Add(float64(len(camPhotos)))

	// Photos consumed by a previously published pair are done for good.
	unseen := make([]companycam.Photo, 0, len(camPhotos))
	for _, cp := range camPhotos {
		if !p.tracker.Seen(cp.ID) {
			unseen = append(unseen, cp)
		}
	}

	analyzed, errs := p.classifyAll(ctx, unseen, opts)
	result.Errors = append(result.Errors, errs...)
	result.PhotosProcessed += len(analyzed)

	pairs := p.findPairs(projectID, analyzed, cfg, opts)

	// Resolved once per project, only when a draft is about to be written.
	projectName := ""

	for _, pair := range pairs {
		key := pair.Key()
		if p.tracker.AlreadyPaired(key) {
			metrics.PairsSkipped.WithLabelValues("already_paired").Inc()
			continue
		}

		metrics.PairsFound.WithLabelValues(pair.Method).Inc()
		result.PairsFound = append(result.PairsFound, FoundPair{ProjectID: projectID, Pair: pair})

		if opts.DryRun || p.planner == nil {
			continue
		}

		if projectName == "" {
			projectName = p.projectName(ctx, projectID)
		}

		urls, tags, notes := draftRecord(projectName, pair)
		_, err := p.planner.CreateDraft(ctx, p.caption(), urls, tags, notes)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to create draft for %s: %w", key, err))
			continue
		}

		metrics.DraftsCreated.Inc()
		result.DraftsCreated++
		p.tracker.MarkPaired(key)
		p.tracker.MarkSeen(pair.Before.ID)
		p.tracker.MarkSeen(pair.After.ID)
	}

	return nil
}

// projectName resolves the human-readable project name for draft notes,
// falling back to the id when the lookup fails.
func (p *Pipeline) projectName(ctx context.Context, projectID string) string {
	project, err := p.cam.GetProject(ctx, projectID)
	if err != nil || project.Name == "" {
		return projectID
	}
	return project.Name
}

// draftRecord builds the planner row fields for an accepted pair. Batch-mode
// notes carry the batch sizes so a reviewer can judge how much evidence backs
// the pair; a combined photo pairing with itself submits a single URL.
func draftRecord(projectName string, pair pairing.Pair) (urls, tags []string, notes string) {
	urls = []string{pair.Before.URL, pair.After.URL}
	if pair.Before.ID == pair.After.ID {
		urls = urls[:1]
	}

	tags = []string{"before-after", pair.Method}

	if pair.Method == pairing.MethodBatch {
		notes = fmt.Sprintf("Auto-generated. Project: %s. Before batch: %d photos. After batch: %d photos.",
			projectName, pair.BeforeBatchSize, pair.AfterBatchSize)
	} else {
		notes = fmt.Sprintf("Fingerprint matched. Project: %s. Score: %.2f.",
			projectName, pair.Score.Overall)
	}
	return urls, tags, notes
}

// classifyResult holds the outcome of classifying a single photo.
type classifyResult struct {
	index int
	photo pairing.Photo
	err   error
}

// classifyAll runs the classifier over all photos concurrently and returns
// the engine-ready photos in input order. Photos that fail to classify are
// reported as errors and dropped.
func (p *Pipeline) classifyAll(ctx context.Context, camPhotos []companycam.Photo, opts ScanOptions) ([]pairing.Photo, []error) {
	if len(camPhotos) == 0 {
		return nil, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	var bar *progressbar.ProgressBar
	if !opts.Quiet {
		bar = progressbar.NewOptions(len(camPhotos),
			progressbar.OptionSetDescription(fmt.Sprintf("Classifying photos (%d workers)", concurrency)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	resultsChan := make(chan classifyResult, len(camPhotos))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var processed int
	var progressMu sync.Mutex

	reportProgress := func(photoID string) {
		progressMu.Lock()
		processed++
		current := processed
		progressMu.Unlock()
		if bar != nil {
			bar.Add(1)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(current, len(camPhotos), photoID)
		}
	}

	for i := range camPhotos {
		wg.Add(1)
		go func(idx int, cp companycam.Photo) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				resultsChan <- classifyResult{index: idx, err: ctx.Err()}
				reportProgress(cp.ID)
				return
			}

			photo, err := p.classifyOne(ctx, cp, opts)
			resultsChan <- classifyResult{index: idx, photo: photo, err: err}
			reportProgress(cp.ID)
		}(i, camPhotos[i])
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]*classifyResult, len(camPhotos))
	for r := range resultsChan {
		results[r.index] = &r
	}
	if bar != nil {
		fmt.Println() // New line after progress bar
	}

	var photos []pairing.Photo
	var errs []error
	for i, r := range results {
		if r == nil {
			errs = append(errs, fmt.Errorf("no result for photo at index %d", i))
			continue
		}
		if r.err != nil {
			metrics.ClassifyErrors.Inc()
			errs = append(errs, r.err)
			continue
		}
		metrics.PhotosClassified.WithLabelValues(r.photo.Classification).Inc()
		photos = append(photos, r.photo)
	}

	return photos, errs
}

func (p *Pipeline) classifyOne(ctx context.Context, cp companycam.Photo, opts ScanOptions) (pairing.Photo, error) {
	classifyStart := time.Now()
	defer func() { metrics.ClassifyDuration.Observe(time.Since(classifyStart).Seconds()) }()

	if p.analyses != nil {
		stored, err := p.analyses.Get(ctx, cp.ID)
		if err != nil {
			return pairing.Photo{}, fmt.Errorf("failed to read analysis cache for %s: %w", cp.ID, err)
		}
		if stored != nil {
			return mergePhotoSource(stored.Photo(), cp), nil
		}
	}

	var imageData []byte
	if opts.DownloadImages {
		data, err := p.cam.DownloadPhoto(ctx, &cp)
		if err != nil {
			return pairing.Photo{}, fmt.Errorf("failed to download photo %s: %w", cp.ID, err)
		}
		imageData = data
	}

	tags, err := p.cam.GetPhotoTags(ctx, cp.ID)
	if err != nil && !companycam.IsNotFoundError(err) {
		return pairing.Photo{}, fmt.Errorf("failed to fetch tags for %s: %w", cp.ID, err)
	}
	tagValues := make([]string, len(tags))
	for i, tag := range tags {
		tagValues[i] = tag.DisplayValue
	}

	pctx := &ai.PhotoContext{
		PhotoID:     cp.ID,
		CapturedAt:  time.Unix(cp.CapturedAt, 0).UTC().Format(time.RFC3339),
		TagValues:   tagValues,
		Description: cp.Description,
	}
	if cp.HasGPS() {
		pctx.Lat = cp.Coordinates.Lat
		pctx.Lng = cp.Coordinates.Lon
	}

	analysis, err := p.classifier.ClassifyPhoto(ctx, imageData, pctx)
	if err != nil {
		return pairing.Photo{}, fmt.Errorf("failed to classify photo %s: %w", cp.ID, err)
	}

	photo := pairing.Photo{
		ID:             cp.ID,
		ProjectID:      cp.ProjectID,
		CapturedAt:     cp.CapturedAt,
		URL:            cp.OriginalURL(),
		Classification: analysis.Classification,
		Confidence:     analysis.Confidence,
		Tokens:         fingerprint.Normalize(analysis.Tokens),
		Messy:          analysis.MessyScore,
		Clean:          analysis.CleanScore,
	}
	if cp.HasGPS() {
		photo.HasGPS = true
		photo.Lat = cp.Coordinates.Lat
		photo.Lng = cp.Coordinates.Lon
	}

	if p.analyses != nil {
		if err := p.saveAnalysis(ctx, photo, analysis.Description); err != nil {
			return pairing.Photo{}, fmt.Errorf("failed to cache analysis for %s: %w", cp.ID, err)
		}
	}

	return photo, nil
}

// mergePhotoSource fills in the fields a cached analysis does not carry,
// which come from the photo source on every run.
func mergePhotoSource(photo pairing.Photo, cp companycam.Photo) pairing.Photo {
	photo.URL = cp.OriginalURL()
	if cp.HasGPS() {
		photo.HasGPS = true
		photo.Lat = cp.Coordinates.Lat
		photo.Lng = cp.Coordinates.Lon
	}
	return photo
}

// saveAnalysis persists a fresh classification, embedding the description
// when an embedder is available. Embedding failures are not fatal; the row
// is stored without a vector.
func (p *Pipeline) saveAnalysis(ctx context.Context, photo pairing.Photo, description string) error {
	var embedding []float32
	if p.embedder != nil && description != "" {
		if emb, err := p.embedder.EmbedText(ctx, description); err == nil {
			embedding = emb
		}
	}

	return p.analyses.Save(ctx, postgres.StoredAnalysis{
		PhotoID:        photo.ID,
		ProjectID:      photo.ProjectID,
		CapturedAt:     photo.CapturedAt,
		Classification: photo.Classification,
		Confidence:     photo.Confidence,
		Description:    description,
		Tokens:         photo.Tokens,
		Messy:          photo.Messy,
		Clean:          photo.Clean,
		Embedding:      embedding,
		Model:          p.classifier.Name(),
	})
}

// findPairs applies the selected match method. Auto tries fingerprint
// matching first and falls back to the coarse batch heuristic when nothing
// matched.
func (p *Pipeline) findPairs(projectID string, photos []pairing.Photo, cfg pairing.Config, opts ScanOptions) []pairing.Pair {
	var pairs []pairing.Pair

	if opts.Method == MethodFingerprint || opts.Method == MethodAuto {
		befores, afters := splitCandidates(photos, cfg)
		pairs = pairing.AssignPairs(befores, afters, cfg)
	}

	if opts.Method == MethodBatch || (opts.Method == MethodAuto && len(pairs) == 0) {
		batches := pairing.GroupIntoBatches(photos, cfg)
		if pair, ok := pairing.AssignBatchPair(batches, cfg); ok {
			pair.Before.ProjectID = projectID
			pairs = append(pairs, pair)
		}
	}

	return pairs
}

// splitCandidates selects the photos eligible for each role. Combined photos
// enter both sides so they can pair with themselves.
func splitCandidates(photos []pairing.Photo, cfg pairing.Config) (befores, afters []pairing.Photo) {
	for _, photo := range photos {
		switch photo.Classification {
		case pairing.LabelBefore:
			befores = append(befores, photo)
		case pairing.LabelAfter:
			afters = append(afters, photo)
		case pairing.LabelCombined:
			befores = append(befores, photo)
			afters = append(afters, photo)
		case pairing.LabelOther:
			// Not a work area; never a candidate.
		default:
			if photo.Messy >= cfg.MinMessy {
				befores = append(befores, photo)
			}
			if photo.Clean >= cfg.MinClean {
				afters = append(afters, photo)
			}
		}
	}
	return befores, afters
}
