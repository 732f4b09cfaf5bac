package pii

import "encoding/json"

// ProcessingReport is the terminal artifact of one pipeline run. It
// holds the input and processed text together with the final match
// set and per-category counts. Reports are built once and never
// mutated.
//
// OriginalText is the normalized form of the input, not the raw
// bytes: all span offsets refer to the normalized string, and the
// raw input is never retained past normalization.
type ProcessingReport struct {
	ID               string           `json:"id"`
	OriginalText     string           `json:"original_text"`
	ProcessedText    string           `json:"processed_text"`
	Matches          MatchSet         `json:"matches"`
	Unresolved       MatchSet         `json:"unresolved,omitempty"`
	ProcessingTimeMS float64          `json:"processing_time_ms"`
	Counts           map[Category]int `json:"counts"`
}

// PIIFound reports whether any PII was detected
func (r ProcessingReport) PIIFound() bool {
	return len(r.Matches) > 0
}

// PIICount returns the total number of matches
func (r ProcessingReport) PIICount() int {
	return len(r.Matches)
}

// ToJSON serializes the report with indentation
func (r ProcessingReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
