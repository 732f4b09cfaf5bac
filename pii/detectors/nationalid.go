package detectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/hannes/pii-shield/pii"
)

// nationalIDPattern matches German ID card numbers (Personalausweis):
// an issuing-authority letter, 8 alphanumerics, optional check digit
var nationalIDPattern = regexp.MustCompile(`\b([LMNPRTVWXYlmnprtvwxy][A-Za-z0-9]{8})(\d)?\b`)

// nationalIDWeights is the repeating weight cycle for the check digit
var nationalIDWeights = [9]int{7, 3, 1, 7, 3, 1, 7, 3, 1}

// NationalIDDetector finds German ID card numbers. The serial is
// validated with the weighted check-digit scheme: each character
// (digits as their value, letters as ord(upper)-55) multiplied by the
// 7,3,1 weight cycle, summed, valid iff sum mod 10 equals the check
// digit.
type NationalIDDetector struct{}

func NewNationalIDDetector() *NationalIDDetector {
	return &NationalIDDetector{}
}

// GetName returns the name of this detector
func (d *NationalIDDetector) GetName() string {
	return "national_id"
}

// Detect finds all German ID numbers in the text
func (d *NationalIDDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span
	for _, match := range nationalIDPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := match[0], match[1]
		serial := strings.ToUpper(text[match[2]:match[3]])

		// Real ID serials contain digits; a purely alphabetic match
		// is almost certainly a word.
		digits := 0
		for i := 0; i < len(serial); i++ {
			if isDigit(serial[i]) {
				digits++
			}
		}
		if digits < 2 {
			continue
		}

		confidence := 0.8
		if match[4] != -1 {
			checkDigit := int(text[match[4]] - '0')
			if nationalIDCheckDigit(serial) == checkDigit {
				confidence = 1.0
			} else {
				confidence = 0.6
			}
		}

		spans = append(spans, pii.Span{
			Category:   pii.CategoryNationalID,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: confidence,
			Source:     d.GetName(),
		})
	}
	return spans, nil
}

// Close implements the Detector interface
func (d *NationalIDDetector) Close() error {
	return nil
}

// nationalIDCheckDigit computes the weighted sum mod 10 over the
// 9-character serial
func nationalIDCheckDigit(serial string) int {
	sum := 0
	for i := 0; i < len(serial) && i < 9; i++ {
		c := serial[i]
		value := 0
		switch {
		case c >= '0' && c <= '9':
			value = int(c - '0')
		case c >= 'A' && c <= 'Z':
			value = int(c) - 55
		}
		sum += value * nationalIDWeights[i]
	}
	return sum % 10
}
