package validator

import (
	"testing"

	"github.com/hannes/pii-shield/pii"
)

func TestExtractSentence(t *testing.T) {
	text := "Erster Satz. Hans wohnt hier! Dritter Satz."

	testCases := []struct {
		name             string
		span             pii.Span
		expectedSentence string
		expectedStart    int
	}{
		{
			name:             "middle sentence",
			span:             pii.Span{Start: 13, End: 17, Text: "Hans"},
			expectedSentence: " Hans wohnt hier!",
			expectedStart:    12,
		},
		{
			name:             "first sentence",
			span:             pii.Span{Start: 0, End: 6, Text: "Erster"},
			expectedSentence: "Erster Satz.",
			expectedStart:    0,
		},
		{
			name:             "last sentence",
			span:             pii.Span{Start: 30, End: 37, Text: "Dritter"},
			expectedSentence: " Dritter Satz.",
			expectedStart:    29,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sentence, start := extractSentence(text, tc.span)
			if sentence != tc.expectedSentence {
				t.Errorf("Expected sentence %q, got %q", tc.expectedSentence, sentence)
			}
			if start != tc.expectedStart {
				t.Errorf("Expected start %d, got %d", tc.expectedStart, start)
			}
		})
	}
}

func TestExtractSentence_NoTerminator(t *testing.T) {
	text := "Hans ohne Satzende"
	sentence, start := extractSentence(text, pii.Span{Start: 0, End: 4, Text: "Hans"})
	if sentence != text {
		t.Errorf("Expected the whole text, got %q", sentence)
	}
	if start != 0 {
		t.Errorf("Expected start 0, got %d", start)
	}
}

func TestGroupBySentence(t *testing.T) {
	text := "Hans und Anna wohnen hier. Bernd ist umgezogen."
	spans := pii.MatchSet{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Anna", Start: 9, End: 13, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Bernd", Start: 27, End: 32, Confidence: 0.7},
	}

	groups := GroupBySentence(text, spans)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 sentence groups, got %d", len(groups))
	}
	if len(groups[0].Spans) != 2 {
		t.Errorf("Expected 2 spans in the first sentence, got %d", len(groups[0].Spans))
	}
	if len(groups[1].Spans) != 1 {
		t.Errorf("Expected 1 span in the second sentence, got %d", len(groups[1].Spans))
	}
	if groups[0].Start != 0 || groups[1].Start <= groups[0].Start {
		t.Errorf("Expected groups in text order, got starts %d and %d", groups[0].Start, groups[1].Start)
	}
}

func TestGroupBySentence_Empty(t *testing.T) {
	if groups := GroupBySentence("Text ohne Treffer.", nil); len(groups) != 0 {
		t.Errorf("Expected no groups, got %d", len(groups))
	}
}

func TestMapVerdicts(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans Mueller", Start: 0, End: 12, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "SAP", Start: 20, End: 23, Confidence: 0.6},
	}

	response := `[
		{"text": "Hans Mueller", "is_pii": true, "confidence": 0.95, "reason": "Personal name"},
		{"text": "SAP", "is_pii": false, "confidence": 0.1, "reason": "Company name"}
	]`

	replacement, err := mapVerdicts(response, spans)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(replacement) != 1 {
		t.Fatalf("Expected 1 confirmed span, got %d", len(replacement))
	}
	if replacement[0].Text != "Hans Mueller" {
		t.Errorf("Expected 'Hans Mueller' confirmed, got %q", replacement[0].Text)
	}
	if replacement[0].Confidence != 0.95 {
		t.Errorf("Expected adjusted confidence 0.95, got %f", replacement[0].Confidence)
	}
	if replacement[0].Start != 0 || replacement[0].End != 12 {
		t.Errorf("Expected original position preserved, got [%d,%d)", replacement[0].Start, replacement[0].End)
	}
}

func TestMapVerdicts_MarkdownFences(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
	}

	response := "```json\n[{\"text\": \"Hans\", \"is_pii\": true, \"confidence\": 0.9, \"reason\": \"name\"}]\n```"

	replacement, err := mapVerdicts(response, spans)
	if err != nil {
		t.Fatalf("Expected fenced JSON to parse, got %v", err)
	}
	if len(replacement) != 1 || replacement[0].Confidence != 0.9 {
		t.Errorf("Expected 1 confirmed span at 0.9, got %+v", replacement)
	}
}

func TestMapVerdicts_MissingVerdictKeepsSpan(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Anna", Start: 9, End: 13, Confidence: 0.65},
	}

	response := `[{"text": "Hans", "is_pii": true, "confidence": 0.9, "reason": "name"}]`

	replacement, err := mapVerdicts(response, spans)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(replacement) != 2 {
		t.Fatalf("Expected the unanswered span to be kept, got %d spans", len(replacement))
	}
	if replacement[1].Text != "Anna" || replacement[1].Confidence != 0.65 {
		t.Errorf("Expected 'Anna' kept at original confidence, got %+v", replacement[1])
	}
}

func TestMapVerdicts_OutOfRangeConfidence(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
	}

	response := `[{"text": "Hans", "is_pii": true, "confidence": 7.5, "reason": "name"}]`

	replacement, err := mapVerdicts(response, spans)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(replacement) != 1 || replacement[0].Confidence != 0.7 {
		t.Errorf("Expected original confidence kept for out-of-range verdict, got %+v", replacement)
	}
}

func TestMapVerdicts_InvalidJSON(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
	}

	if _, err := mapVerdicts("I cannot help with that.", spans); err == nil {
		t.Error("Expected an error for a non-JSON response")
	}
}

func TestMapVerdicts_DuplicateTexts(t *testing.T) {
	spans := []pii.Span{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Hans", Start: 20, End: 24, Confidence: 0.7},
	}

	response := `[
		{"text": "Hans", "is_pii": true, "confidence": 0.9, "reason": "name"},
		{"text": "Hans", "is_pii": false, "confidence": 0.2, "reason": "brand"}
	]`

	replacement, err := mapVerdicts(response, spans)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(replacement) != 1 {
		t.Fatalf("Expected each verdict consumed once, got %d spans", len(replacement))
	}
	if replacement[0].Start != 0 {
		t.Errorf("Expected the first occurrence confirmed, got %+v", replacement[0])
	}
}
