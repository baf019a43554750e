package pairing

import (
	"math"

	"github.com/monroehq/photo-pairer/internal/fingerprint"
)

// Composite score weights. The sub-scores sum additively and the total is
// clamped to [0,1].
const (
	fingerprintWeight = 0.4 // scaled by Jaccard similarity
	gpsBonus          = 0.2 // both photos located within tolerance
	gateWeight        = 0.3 // scaled by classification strength
	workWindowBonus   = 0.3 // gap within a plausible work duration
	orderBonus        = 0.1 // before captured earlier than after

	minWorkGapSeconds = 3600          // under an hour suggests the same moment
	maxWorkGapSeconds = 7 * 24 * 3600 // over a week suggests unrelated events
)

// Score is the scorer's verdict on one candidate pair, with the component
// values retained so callers can explain the decision.
type Score struct {
	Overall     float64
	Fingerprint float64 // Jaccard similarity of the token sets
	GPSDistance float64 // meters; -1 when either side lacks coordinates
	Flags       Flags
}

// Flags explain which conditions the candidate pair met.
type Flags struct {
	FingerprintCandidate bool // Jaccard above the candidacy threshold
	GPSValid             bool // within tolerance, or unknowable
	GateSatisfied        bool // messy/clean or label gate passed
	WithinWorkWindow     bool // gap between 1 hour and 7 days
	OrderedInTime        bool // before captured strictly earlier
}

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance in meters between two
// latitude/longitude points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// ScorePair computes the composite compatibility score for a candidate
// before/after pair. The result is deterministic given the two photos and
// the configuration.
//
// A pair is viable only if the token sets clear the Jaccard candidacy
// threshold, the classification gate holds, and the GPS distance (when both
// sides are located) stays within tolerance. Missing coordinates never block
// a pair; they only fail to help it.
func ScorePair(before, after Photo, cfg Config) Score {
	s := Score{GPSDistance: -1}

	s.Fingerprint = fingerprint.Jaccard(before.Tokens, after.Tokens)
	s.Flags.FingerprintCandidate = s.Fingerprint > cfg.MinSimilarity

	messyClean := before.Messy >= cfg.MinMessy && after.Clean >= cfg.MinClean
	labeled := before.Classification == LabelBefore && after.Classification == LabelAfter
	s.Flags.GateSatisfied = messyClean || labeled

	s.Flags.GPSValid = true
	located := before.HasGPS && after.HasGPS
	if located {
		s.GPSDistance = Haversine(before.Lat, before.Lng, after.Lat, after.Lng)
		s.Flags.GPSValid = s.GPSDistance <= cfg.GPSToleranceMeters
	}

	dt := after.CapturedAt - before.CapturedAt
	s.Flags.OrderedInTime = dt > 0
	s.Flags.WithinWorkWindow = dt >= minWorkGapSeconds && dt <= maxWorkGapSeconds

	if !s.Flags.FingerprintCandidate || !s.Flags.GateSatisfied || !s.Flags.GPSValid {
		return s
	}

	overall := fingerprintWeight * s.Fingerprint

	if located {
		overall += gpsBonus
	}

	// Gate strength: scored from whichever gate held, taking the stronger
	// signal when both do.
	var gate float64
	if messyClean {
		gate = float64(before.Messy+after.Clean) / 20
	}
	if labeled {
		if conf := (before.Confidence + after.Confidence) / 2; conf > gate {
			gate = conf
		}
	}
	overall += gateWeight * gate

	if s.Flags.WithinWorkWindow {
		overall += workWindowBonus
	}
	if s.Flags.OrderedInTime {
		overall += orderBonus
	}

	s.Overall = clamp01(overall)
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
