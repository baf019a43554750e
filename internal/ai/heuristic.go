package ai

import "context"

// Tag values crews commonly apply to mark work stages.
var (
	beforeTags = map[string]bool{
		"before": true, "start": true, "pre": true, "old": true,
		"existing": true, "damage": true, "demo": true,
	}
	afterTags = map[string]bool{
		"after": true, "finished": true, "final": true, "complete": true,
		"completed": true, "done": true, "post": true,
	}
)

// TagClassifier classifies photos from crew-applied tags alone, without
// downloading the image or calling a vision model. It is the default backend
// when no API key is configured; its verdicts carry no scene tokens or
// messy/clean scores, so pairing falls back to the label gate.
type TagClassifier struct{}

func NewTagClassifier() *TagClassifier {
	return &TagClassifier{}
}

func (c *TagClassifier) Name() string {
	return "tag-heuristic"
}

func (c *TagClassifier) GetUsage() *Usage {
	return &Usage{}
}

func (c *TagClassifier) ResetUsage() {}

func (c *TagClassifier) ClassifyPhoto(_ context.Context, _ []byte, photo *PhotoContext) (*PhotoAnalysis, error) {
	analysis := &PhotoAnalysis{
		Classification: LabelUnknown,
		Confidence:     0.5,
	}

	if photo == nil {
		return analysis, nil
	}

	var before, after bool
	for _, tag := range photo.TagValues {
		norm := normalizeTag(tag)
		if beforeTags[norm] {
			before = true
		}
		if afterTags[norm] {
			after = true
		}
	}

	switch {
	case before && after:
		analysis.Classification = LabelCombined
		analysis.Confidence = 0.7
	case before:
		analysis.Classification = LabelBefore
		analysis.Confidence = 0.9
	case after:
		analysis.Classification = LabelAfter
		analysis.Confidence = 0.9
	}

	return analysis, nil
}

func normalizeTag(tag string) string {
	out := make([]byte, 0, len(tag))
	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if ch >= 'a' && ch <= 'z' {
			out = append(out, ch)
		}
	}
	return string(out)
}

var _ Classifier = (*TagClassifier)(nil)
var _ Classifier = (*OpenAIClassifier)(nil)
var _ Classifier = (*GeminiClassifier)(nil)
