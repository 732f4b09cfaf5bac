package detectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/hannes/pii-shield/pii"
)

// German phone number patterns. RE2 has no lookarounds, so the
// digit-boundary conditions from the format definition are enforced
// by inspecting the neighbouring bytes after matching.
var (
	// International format: +49 or 0049 prefix
	phoneInternationalPattern = regexp.MustCompile(
		`(?:\+49|0049)[ \-./]?\(?\d{2,4}\)?[ \-./]?\d{3,8}(?:[ \-./]?\d{1,8})?`)

	// National format: leading 0 plus area/mobile code (captured)
	phoneNationalPattern = regexp.MustCompile(
		`\(?0(\d{2,5})\)?[ \-./]?\d{3,8}(?:[ \-./]?\d{1,8})?`)
)

// German mobile prefixes (without leading 0)
var phoneMobilePrefixes = map[string]bool{
	"150": true, "151": true, "152": true, "155": true, "157": true,
	"159": true, "160": true, "162": true, "163": true, "170": true,
	"171": true, "172": true, "173": true, "174": true, "175": true,
	"176": true, "177": true, "178": true, "179": true,
}

// Service number prefixes
var phoneServicePrefixes = map[string]bool{
	"800": true, "180": true, "181": true, "182": true, "183": true,
	"184": true, "185": true, "186": true, "187": true, "188": true,
	"189": true, "700": true, "900": true,
}

// PhoneDetector finds German phone numbers in international and
// national formats. Confidence scales with format completeness: an
// explicit country prefix is certain, a known mobile or service
// prefix nearly so, a plausible area code somewhat less.
type PhoneDetector struct{}

func NewPhoneDetector() *PhoneDetector {
	return &PhoneDetector{}
}

// GetName returns the name of this detector
func (d *PhoneDetector) GetName() string {
	return "phone"
}

// Detect finds all German phone numbers in the text
func (d *PhoneDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span

	// International matches take precedence; national matches that
	// overlap one are dropped so the same number is not reported twice.
	for _, match := range phoneInternationalPattern.FindAllStringIndex(text, -1) {
		start, end := match[0], match[1]
		if !digitBoundaryOK(text, start, end) {
			continue
		}
		spans = append(spans, pii.Span{
			Category:   pii.CategoryPhone,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: 1.0,
			Source:     d.GetName(),
		})
	}

	for _, match := range phoneNationalPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := match[0], match[1]
		if !digitBoundaryOK(text, start, end) {
			continue
		}
		if overlapsAny(spans, start, end) {
			continue
		}
		areaCode := text[match[2]:match[3]]
		spans = append(spans, pii.Span{
			Category:   pii.CategoryPhone,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: nationalConfidence(areaCode),
			Source:     d.GetName(),
		})
	}

	return spans, nil
}

// Close implements the Detector interface
func (d *PhoneDetector) Close() error {
	return nil
}

// nationalConfidence scores a national-format match by its area code
func nationalConfidence(areaCode string) float64 {
	trimmed := strings.TrimLeft(areaCode, "0")
	if phoneMobilePrefixes[trimmed] {
		return 0.95
	}
	if phoneServicePrefixes[trimmed] {
		return 0.95
	}
	if len(areaCode) >= 2 && len(areaCode) <= 5 {
		return 0.9
	}
	return 0.8
}

// digitBoundaryOK reports whether the match is not embedded in a
// longer digit run
func digitBoundaryOK(text string, start, end int) bool {
	if start > 0 && isDigit(text[start-1]) {
		return false
	}
	if end < len(text) && isDigit(text[end]) {
		return false
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// overlapsAny reports whether [start,end) overlaps any already
// collected span
func overlapsAny(spans []pii.Span, start, end int) bool {
	for _, span := range spans {
		if start < span.End && span.Start < end {
			return true
		}
	}
	return false
}
