package pairing

import "sort"

// GroupIntoBatches clusters a project's photos into contiguous capture
// sessions. Photos are sorted ascending by capture time; a photo joins the
// current batch when its gap to the previous photo is <= the configured
// threshold, otherwise it starts a new batch. Equal timestamps count as zero
// gap. Batches smaller than MinBatchSize are dropped.
//
// Empty input yields empty output, never an error.
func GroupIntoBatches(photos []Photo, cfg Config) []Batch {
	if len(photos) == 0 {
		return nil
	}

	sorted := make([]Photo, len(photos))
	copy(sorted, photos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAt < sorted[j].CapturedAt
	})

	var batches []Batch
	current := []Photo{sorted[0]}

	for _, p := range sorted[1:] {
		last := current[len(current)-1]
		if p.CapturedAt-last.CapturedAt <= cfg.GapThreshold {
			current = append(current, p)
			continue
		}
		batches = append(batches, Batch{Photos: current})
		current = []Photo{p}
	}
	batches = append(batches, Batch{Photos: current})

	if cfg.MinBatchSize > 1 {
		kept := batches[:0]
		for _, b := range batches {
			if len(b.Photos) >= cfg.MinBatchSize {
				kept = append(kept, b)
			}
		}
		batches = kept
	}

	return batches
}
