// Package validator implements the external adjudication boundary
// for matches that fall below the auto-approval confidence threshold.
// The adjudicator receives the needs-review spans grouped by
// containing sentence and returns a replacement list: each span
// confirmed, confidence-adjusted, or omitted.
package validator

import (
	"context"

	"github.com/hannes/pii-shield/pii"
)

// Adjudicator decides whether low-confidence matches are genuine PII.
// Implementations must never drop spans silently on failure: a
// transport or parse error returns an error so the caller can treat
// the spans as unresolved.
type Adjudicator interface {
	GetName() string
	Adjudicate(ctx context.Context, text string, needsReview pii.MatchSet) (pii.MatchSet, error)
}

// SentenceGroup holds the spans that fall inside one sentence of the
// normalized text, with the sentence's start offset
type SentenceGroup struct {
	Sentence string
	Start    int
	Spans    []pii.Span
}

// sentenceEnders are the characters that terminate a sentence
const sentenceEnders = ".!?\n"

// extractSentence returns the sentence containing the span and its
// start offset in the text
func extractSentence(text string, span pii.Span) (string, int) {
	start := span.Start
	for start > 0 && !isSentenceEnder(text[start-1]) {
		start--
	}

	end := span.End
	for end < len(text) && !isSentenceEnder(text[end]) {
		end++
	}
	if end < len(text) {
		end++ // include the punctuation
	}

	return text[start:end], start
}

func isSentenceEnder(b byte) bool {
	for i := 0; i < len(sentenceEnders); i++ {
		if sentenceEnders[i] == b {
			return true
		}
	}
	return false
}

// GroupBySentence groups spans by the sentence they appear in,
// preserving the order in which sentences occur
func GroupBySentence(text string, spans pii.MatchSet) []SentenceGroup {
	var groups []SentenceGroup
	index := make(map[int]int) // sentence start -> group position

	for _, span := range spans {
		sentence, start := extractSentence(text, span)
		if pos, seen := index[start]; seen {
			groups[pos].Spans = append(groups[pos].Spans, span)
			continue
		}
		index[start] = len(groups)
		groups = append(groups, SentenceGroup{
			Sentence: sentence,
			Start:    start,
			Spans:    []pii.Span{span},
		})
	}

	return groups
}
