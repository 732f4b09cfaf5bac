package detectors

import (
	"context"
	"regexp"

	"github.com/hannes/pii-shield/pii"
)

// emailPattern matches RFC-5322-style addresses structurally
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// EmailDetector finds email addresses. A structural match is
// sufficient evidence, so every match carries confidence 1.0.
type EmailDetector struct{}

func NewEmailDetector() *EmailDetector {
	return &EmailDetector{}
}

// GetName returns the name of this detector
func (d *EmailDetector) GetName() string {
	return "email"
}

// Detect finds all email addresses in the text
func (d *EmailDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span
	for _, match := range emailPattern.FindAllStringIndex(text, -1) {
		start, end := match[0], match[1]
		spans = append(spans, pii.Span{
			Category:   pii.CategoryEmail,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: 1.0,
			Source:     d.GetName(),
		})
	}
	return spans, nil
}

// Close implements the Detector interface
func (d *EmailDetector) Close() error {
	return nil
}
