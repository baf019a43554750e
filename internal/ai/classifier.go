// Package ai classifies job-site photos as before/after shots using vision
// model backends, with a tag-based heuristic fallback that needs no API key.
package ai

import (
	"context"
	"strings"
)

// Photo classification labels.
const (
	LabelBefore   = "before"
	LabelAfter    = "after"
	LabelCombined = "combined"
	LabelOther    = "other"
	LabelUnknown  = "unknown"
)

// PhotoContext contains photo metadata that may help with classification.
type PhotoContext struct {
	PhotoID     string
	ProjectName string
	CapturedAt  string  // RFC 3339 capture time, if known
	Lat         float64 // GPS latitude, zero when absent
	Lng         float64 // GPS longitude, zero when absent
	TagValues   []string
	Description string // photographer's caption, if any
}

// PhotoAnalysis contains the classifier's verdict on a photo.
type PhotoAnalysis struct {
	// Classification is one of the label constants.
	Classification string `json:"classification"`
	// Confidence score 0-1 for the classification.
	Confidence float64 `json:"confidence"`
	// Description of the visible scene and work state.
	Description string `json:"description"`
	// Tokens are scene keywords used for fingerprint matching.
	Tokens []string `json:"tokens"`
	// MessyScore 0-10: how much the scene looks like unstarted work.
	MessyScore int `json:"messy_score"`
	// CleanScore 0-10: how much the scene looks like finished work.
	CleanScore int `json:"clean_score"`
}

// Normalize clamps scores into range and maps unexpected labels to unknown.
func (a *PhotoAnalysis) Normalize() {
	a.Classification = strings.ToLower(strings.TrimSpace(a.Classification))
	switch a.Classification {
	case LabelBefore, LabelAfter, LabelCombined, LabelOther:
	default:
		a.Classification = LabelUnknown
	}

	a.MessyScore = clampScore(a.MessyScore)
	a.CleanScore = clampScore(a.CleanScore)

	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Classifier defines the interface for photo classification backends.
type Classifier interface {
	Name() string
	ClassifyPhoto(ctx context.Context, imageData []byte, photo *PhotoContext) (*PhotoAnalysis, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens.
type RequestPricing struct {
	Input  float64
	Output float64
}
