package strategies

import (
	"strings"

	"github.com/hannes/pii-shield/pii"
)

// Strategy produces the replacement string for a single matched span.
// Strategies are pure: the same span always yields the same
// replacement, and they carry all their configuration as immutable
// values so different callers can apply different strategies
// concurrently.
type Strategy interface {
	GetName() string
	Replacement(span pii.Span) string
}

// Apply rewrites each matched span with the strategy's replacement
// and copies all text outside matched spans through unchanged. The
// match set must be non-overlapping and position-sorted, which
// aggregation guarantees.
func Apply(text string, matches pii.MatchSet, strategy Strategy) string {
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	cursor := 0
	for _, span := range matches {
		if span.Start < cursor || span.End > len(text) {
			continue
		}
		builder.WriteString(text[cursor:span.Start])
		builder.WriteString(strategy.Replacement(span))
		cursor = span.End
	}
	builder.WriteString(text[cursor:])
	return builder.String()
}
