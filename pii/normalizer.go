package pii

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text before detection: Unicode NFC
// composition followed by collapsing whitespace runs to a single
// space. Detectors only ever run on normalized text, so span offsets
// always refer to the normalized string.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	composed := norm.NFC.String(text)
	return strings.Join(strings.Fields(composed), " ")
}
