package pii

import (
	"fmt"
	"sort"
)

// Span represents a single detected PII instance in text.
// Offsets are half-open byte positions into the normalized text.
// Spans are value types and are never mutated in place; adjusting
// confidence produces a new Span.
type Span struct {
	Category   Category `json:"category"`
	Text       string   `json:"text"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

// Validate checks the span invariants
func (s Span) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("start position must be non-negative (got %d)", s.Start)
	}
	if s.End <= s.Start {
		return fmt.Errorf("end position must be greater than start (got [%d,%d))", s.Start, s.End)
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %f)", s.Confidence)
	}
	return nil
}

// Length returns the number of bytes covered by the span
func (s Span) Length() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans cover at least one common position
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// WithConfidence returns a copy of the span with an adjusted confidence
func (s Span) WithConfidence(confidence float64) Span {
	s.Confidence = confidence
	return s
}

// MatchSet is a position-sorted collection of spans. After aggregation
// no two spans in a MatchSet overlap.
type MatchSet []Span

// SortByPosition orders spans by start ascending, ties broken by end ascending
func (m MatchSet) SortByPosition() {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].Start != m[j].Start {
			return m[i].Start < m[j].Start
		}
		return m[i].End < m[j].End
	})
}

// HasOverlap reports whether any two spans in the set overlap.
// The set must be sorted by position.
func (m MatchSet) HasOverlap() bool {
	for i := 1; i < len(m); i++ {
		if m[i-1].Overlaps(m[i]) {
			return true
		}
	}
	return false
}

// CountByCategory returns the number of spans per category
func (m MatchSet) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, span := range m {
		counts[span.Category]++
	}
	return counts
}
