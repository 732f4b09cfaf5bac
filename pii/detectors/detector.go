package detectors

import (
	"context"

	"github.com/hannes/pii-shield/pii"
)

// Detector locates candidate PII spans in normalized text. Detectors
// are pure over their input and hold no shared mutable state, so a
// set of detectors may run concurrently over the same text.
type Detector interface {
	GetName() string
	Detect(ctx context.Context, text string) ([]pii.Span, error)
	Close() error
}

// Registry is an ordered list of detectors. Order matters only for
// the stable tie-break during aggregation: when two detectors report
// the exact same span with equal confidence, the earlier-registered
// one wins.
type Registry struct {
	detectors []Detector
}

// NewRegistry creates a registry with the given detectors in order
func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Register appends a detector to the registry
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Detectors returns the registered detectors in registration order
func (r *Registry) Detectors() []Detector {
	return r.detectors
}

// Close closes all registered detectors, returning the first error
func (r *Registry) Close() error {
	var firstErr error
	for _, d := range r.detectors {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DefaultRegistry returns a registry with all built-in pattern
// detectors in their canonical order.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewEmailDetector(),
		NewPhoneDetector(),
		NewIBANDetector(),
		NewNationalIDDetector(),
		NewPaymentCardDetector(),
		NewIPAddressDetector(),
	)
}
