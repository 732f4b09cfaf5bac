package strategies

import (
	"fmt"

	"github.com/hannes/pii-shield/pii"
)

// RedactionStrategy replaces each match with a bracketed category
// label, e.g. [EMAIL]. The placeholder format is configurable and
// must contain a single %s verb for the category name.
type RedactionStrategy struct {
	Format string
}

// NewRedactionStrategy creates a redaction strategy with the default
// [CATEGORY] placeholder format
func NewRedactionStrategy() *RedactionStrategy {
	return &RedactionStrategy{Format: "[%s]"}
}

// GetName returns the strategy selector name
func (s *RedactionStrategy) GetName() string {
	return "redaction"
}

// Replacement returns the placeholder for the span's category
func (s *RedactionStrategy) Replacement(span pii.Span) string {
	return fmt.Sprintf(s.Format, string(span.Category))
}
