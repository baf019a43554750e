// Package metrics exposes Prometheus counters for the pairing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "photo_pairer"

var (
	PhotosScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_scanned_total",
		Help:      "Photos fetched from the photo source across all runs.",
	})

	PhotosClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_classified_total",
		Help:      "Classifier verdicts by label.",
	}, []string{"label"})

	ClassifyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classify_errors_total",
		Help:      "Photos that failed classification.",
	})

	PairsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairs_found_total",
		Help:      "Accepted before/after pairs by match method.",
	}, []string{"method"})

	PairsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairs_skipped_total",
		Help:      "Pairs dropped before publishing, by reason.",
	}, []string{"reason"})

	DraftsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "drafts_created_total",
		Help:      "Draft posts submitted to the content planner.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of one full pairing run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "classify_duration_seconds",
		Help:      "Time spent classifying a single photo.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	TrackedPhotos = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_photos",
		Help:      "Photo ids currently held by the run-state tracker.",
	})

	TrackedPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_pairs",
		Help:      "Pair keys currently held by the run-state tracker.",
	})
)
