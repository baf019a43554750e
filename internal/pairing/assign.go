package pairing

import "sort"

// AssignPairs greedily matches before-candidates to after-candidates in
// fingerprint mode. Before-candidates are processed in descending messy-score
// order; each scans the unused after-candidates and takes the strictly
// highest-scoring one that meets the acceptance threshold. Both photos are
// then removed from further consideration in either role. Equal scores keep
// the first-encountered after-candidate, which is deterministic for a stable
// input order but otherwise arbitrary.
//
// A before-candidate with no qualifying partner is skipped silently. The
// result is always a (possibly empty) list, never an error.
func AssignPairs(befores, afters []Photo, cfg Config) []Pair {
	sorted := make([]Photo, len(befores))
	copy(sorted, befores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Messy > sorted[j].Messy
	})

	used := make(map[string]bool)
	var pairs []Pair

	for _, before := range sorted {
		if used[before.ID] {
			continue
		}

		var best *Pair
		for _, after := range afters {
			if used[after.ID] {
				continue
			}
			// A photo pairs with itself only when classified combined.
			if after.ID == before.ID && before.Classification != LabelCombined {
				continue
			}

			sc := ScorePair(before, after, cfg)
			if sc.Overall < cfg.AcceptThreshold {
				continue
			}
			if best == nil || sc.Overall > best.Score.Overall {
				best = &Pair{Before: before, After: after, Score: sc, Method: MethodFingerprint}
			}
		}

		if best == nil {
			continue
		}

		used[best.Before.ID] = true
		used[best.After.ID] = true
		pairs = append(pairs, *best)
	}

	return pairs
}

// AssignBatchPair forms at most one pair per project from its batches: the
// first qualifying batch plays the before role and the last plays after,
// represented by their median photos. The pair forms only when the gap
// between the before batch's end and the after batch's start is at least
// MinGapBetweenBatches.
func AssignBatchPair(batches []Batch, cfg Config) (Pair, bool) {
	if len(batches) < 2 {
		return Pair{}, false
	}

	before := batches[0]
	after := batches[len(batches)-1]

	if after.StartTime()-before.EndTime() < cfg.MinGapBetweenBatches {
		return Pair{}, false
	}

	beforeRep := before.Representative()
	afterRep := after.Representative()

	return Pair{
		Before:          beforeRep,
		After:           afterRep,
		Score:           ScorePair(beforeRep, afterRep, cfg),
		Method:          MethodBatch,
		BeforeBatchSize: len(before.Photos),
		AfterBatchSize:  len(after.Photos),
	}, true
}
