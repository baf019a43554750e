package pairing

import (
	"fmt"
	"sort"
	"strings"
)

// Classification labels supplied by the external classifier.
const (
	LabelBefore   = "before"
	LabelAfter    = "after"
	LabelCombined = "combined"
	LabelOther    = "other"
	LabelUnknown  = "unknown"
)

// Match methods recorded on accepted pairs.
const (
	MethodFingerprint = "fingerprint"
	MethodBatch       = "batch"
)

// Photo is the engine's view of a single photograph. All fields must be
// fully populated before a Photo enters the grouper or scorer; the engine
// performs no fetching or classification of its own.
type Photo struct {
	ID         string
	ProjectID  string
	CapturedAt int64 // unix seconds
	URL        string

	// GPS position; HasGPS false means coordinates are absent, which is
	// never fatal, it only withholds the geospatial score contribution.
	Lat    float64
	Lng    float64
	HasGPS bool

	// Classifier output. Tokens are expected to be normalized
	// (fingerprint.Normalize) before scoring.
	Classification string
	Confidence     float64
	Tokens         []string
	Messy          int // 0-10 before-ness
	Clean          int // 0-10 after-ness
}

// Batch is an ordered run of one project's photos whose consecutive capture
// gaps all stay within the configured threshold, modeling one site visit.
type Batch struct {
	Photos []Photo
}

// StartTime returns the capture time of the earliest photo in the batch.
func (b Batch) StartTime() int64 {
	return b.Photos[0].CapturedAt
}

// EndTime returns the capture time of the latest photo in the batch.
func (b Batch) EndTime() int64 {
	return b.Photos[len(b.Photos)-1].CapturedAt
}

// Representative returns the photo at the median chronological index.
// The middle shot avoids the blurred in-motion first and last frames of a
// session without needing an image-quality model.
func (b Batch) Representative() Photo {
	return b.Photos[len(b.Photos)/2]
}

// Pair is an accepted before/after match. Before and After coincide only
// for photos classified as combined.
type Pair struct {
	Before Photo
	After  Photo
	Score  Score
	Method string

	// Batch sizes for batch-mode pairs; zero in fingerprint mode.
	BeforeBatchSize int
	AfterBatchSize  int
}

// Key returns the deterministic dedup key for this pair. Batch-mode keys
// derive from the project and batch sizes, which can under-distinguish
// distinct same-sized pairs; fingerprint-mode keys are content-addressed
// from the two photo ids.
func (p Pair) Key() string {
	if p.Method == MethodBatch {
		return fmt.Sprintf("%s-%d-%d", p.Before.ProjectID, p.BeforeBatchSize, p.AfterBatchSize)
	}
	ids := []string{p.Before.ID, p.After.ID}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

// Config holds the engine thresholds. All values are run parameters rather
// than hard-coded physics.
type Config struct {
	GapThreshold         int64   // max intra-batch gap, seconds
	MinBatchSize         int     // 1 for exhaustive scans, 2 for noise-resistant
	MinGapBetweenBatches int64   // min before/after batch separation, seconds
	MinSimilarity        float64 // Jaccard candidacy threshold
	GPSToleranceMeters   float64 // max haversine distance for a GPS match
	MinMessy             int     // before-ness gate
	MinClean             int     // after-ness gate
	AcceptThreshold      float64 // minimum composite score to accept a pair
}

// DefaultConfig returns the standard engine thresholds.
func DefaultConfig() Config {
	return Config{
		GapThreshold:         1800,
		MinBatchSize:         2,
		MinGapBetweenBatches: 3600,
		MinSimilarity:        0.3,
		GPSToleranceMeters:   50,
		MinMessy:             5,
		MinClean:             5,
		AcceptThreshold:      0.5,
	}
}
