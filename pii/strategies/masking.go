package strategies

import (
	"strings"

	"github.com/hannes/pii-shield/pii"
)

// maskInteriorWidth is the fixed number of mask characters between
// the visible edges. The interior is not proportional to the original
// length so a masked value does not leak how long the original was.
const maskInteriorWidth = 3

// MaskingStrategy keeps a configurable number of leading and trailing
// characters visible and replaces the interior with a fixed-width run
// of the mask character: "hans@sap.com" -> "han***com". Values too
// short to mask safely are replaced entirely.
type MaskingStrategy struct {
	MaskChar     string
	VisibleChars int
}

// NewMaskingStrategy creates a masking strategy with the default mask
// character '*' and 3 visible characters on each side
func NewMaskingStrategy() *MaskingStrategy {
	return &MaskingStrategy{MaskChar: "*", VisibleChars: 3}
}

// GetName returns the strategy selector name
func (s *MaskingStrategy) GetName() string {
	return "masking"
}

// Replacement masks the span's matched text. The visible edges are
// counted in runes, not bytes, so multibyte characters are never cut
// in half.
func (s *MaskingStrategy) Replacement(span pii.Span) string {
	runes := []rune(span.Text)
	if len(runes) <= s.VisibleChars*2 {
		return strings.Repeat(s.MaskChar, len(runes))
	}
	return string(runes[:s.VisibleChars]) +
		strings.Repeat(s.MaskChar, maskInteriorWidth) +
		string(runes[len(runes)-s.VisibleChars:])
}
