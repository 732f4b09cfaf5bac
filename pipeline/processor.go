// Package pipeline orchestrates one de-identification run: normalize,
// detect, aggregate, triage, adjudicate, rewrite. Each run is fully
// isolated; the processor holds no per-run state, so concurrent runs
// over different texts never interact.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hannes/pii-shield/pii"
	"github.com/hannes/pii-shield/pii/detectors"
	"github.com/hannes/pii-shield/pii/strategies"
	"github.com/hannes/pii-shield/validator"
)

// ErrEmptyInput is returned when the input text is empty or collapses
// to nothing under normalization
var ErrEmptyInput = fmt.Errorf("input text is empty")

// ErrInvalidEncoding is returned when the input text is not valid
// UTF-8. Malformed bytes are rejected before normalization rather
// than silently coerced to replacement characters.
var ErrInvalidEncoding = fmt.Errorf("input text is not valid UTF-8")

// Processor runs the detection and de-identification pipeline. The
// adjudicator is optional; without one, needs-review matches are
// reported as unresolved and only approved matches are rewritten.
type Processor struct {
	registry    *detectors.Registry
	adjudicator validator.Adjudicator
	threshold   float64
}

// NewProcessor creates a processor over the given detector registry
// and confidence threshold
func NewProcessor(registry *detectors.Registry, threshold float64) *Processor {
	return &Processor{
		registry:  registry,
		threshold: threshold,
	}
}

// WithAdjudicator attaches an external adjudicator for needs-review
// matches and returns the processor
func (p *Processor) WithAdjudicator(adjudicator validator.Adjudicator) *Processor {
	p.adjudicator = adjudicator
	return p
}

// detectorResult carries one detector's spans through the fan-in channel
type detectorResult struct {
	name  string
	spans []pii.Span
	err   error
}

// Detect normalizes the text and runs all registered detectors
// concurrently, returning the aggregated non-overlapping match set
// together with the normalized text. A failing detector is isolated
// and contributes zero spans.
func (p *Processor) Detect(ctx context.Context, text string) (string, pii.MatchSet, error) {
	if !utf8.ValidString(text) {
		return "", nil, ErrInvalidEncoding
	}
	normalized := pii.Normalize(text)
	if normalized == "" {
		return "", nil, ErrEmptyInput
	}

	all := p.runDetectors(ctx, normalized)
	return normalized, pii.Aggregate(all), nil
}

// runDetectors fans out one goroutine per detector and collects the
// candidate spans in registration order, so aggregation's stable
// tie-break stays deterministic regardless of completion order.
func (p *Processor) runDetectors(ctx context.Context, normalized string) []pii.Span {
	detectorList := p.registry.Detectors()
	results := make([]detectorResult, len(detectorList))
	done := make(chan int, len(detectorList))

	for i, detector := range detectorList {
		go func(idx int, d detectors.Detector) {
			defer func() {
				if r := recover(); r != nil {
					results[idx] = detectorResult{name: d.GetName(), err: fmt.Errorf("detector panicked: %v", r)}
				}
				done <- idx
			}()
			spans, err := d.Detect(ctx, normalized)
			results[idx] = detectorResult{name: d.GetName(), spans: spans, err: err}
		}(i, detector)
	}

	for range detectorList {
		<-done
	}

	var all []pii.Span
	for _, result := range results {
		if result.err != nil {
			log.Printf("Detector %s failed, treating as zero spans: %v", result.name, result.err)
			continue
		}
		all = append(all, result.spans...)
	}
	return all
}

// Process runs the full pipeline and rewrites the text with the given
// strategy. When the adjudicator fails or is absent, the run degrades:
// only approved matches are rewritten and the needs-review matches
// are reported as unresolved, never dropped silently.
func (p *Processor) Process(ctx context.Context, text string, strategy strategies.Strategy) (pii.ProcessingReport, error) {
	return p.ProcessWithThreshold(ctx, text, strategy, p.threshold)
}

// ProcessWithThreshold runs the pipeline with a per-run confidence
// threshold instead of the configured one. The processor holds no
// per-run state, so overriding the threshold for one run never
// affects concurrent runs.
func (p *Processor) ProcessWithThreshold(ctx context.Context, text string, strategy strategies.Strategy, threshold float64) (pii.ProcessingReport, error) {
	started := time.Now()

	normalized, matches, err := p.Detect(ctx, text)
	if err != nil {
		return pii.ProcessingReport{}, err
	}

	approved, needsReview := pii.Triage(matches, threshold)

	final := approved
	unresolved := pii.MatchSet{}
	if len(needsReview) > 0 {
		if p.adjudicator == nil {
			unresolved = needsReview
		} else {
			replacement, err := p.adjudicator.Adjudicate(ctx, normalized, needsReview)
			if err != nil {
				log.Printf("Adjudicator %s unavailable, leaving %d matches unresolved: %v",
					p.adjudicator.GetName(), len(needsReview), err)
				unresolved = needsReview
			} else {
				final = pii.Merge(approved, replacement)
			}
		}
	}

	processed := normalized
	if strategy != nil {
		processed = strategies.Apply(normalized, final, strategy)
	}

	return pii.ProcessingReport{
		ID:               uuid.NewString(),
		OriginalText:     normalized,
		ProcessedText:    processed,
		Matches:          final,
		Unresolved:       unresolved,
		ProcessingTimeMS: float64(time.Since(started).Microseconds()) / 1000.0,
		Counts:           final.CountByCategory(),
	}, nil
}
