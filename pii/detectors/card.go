package detectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/hannes/pii-shield/pii"
)

// cardPattern matches 13-19 digit card numbers with optional space or
// hyphen separators between groups
var cardPattern = regexp.MustCompile(`\b(\d{4}[ \-]?\d{4}[ \-]?\d{4}[ \-]?\d{1,7}|\d{13,19})\b`)

// PaymentCardDetector finds payment card numbers validated by the
// Luhn algorithm. A digit run that fails Luhn is indistinguishable
// from noise and is discarded rather than surfaced.
type PaymentCardDetector struct{}

func NewPaymentCardDetector() *PaymentCardDetector {
	return &PaymentCardDetector{}
}

// GetName returns the name of this detector
func (d *PaymentCardDetector) GetName() string {
	return "payment_card"
}

// Detect finds all Luhn-valid card numbers in the text
func (d *PaymentCardDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span
	for _, match := range cardPattern.FindAllStringIndex(text, -1) {
		start, end := match[0], match[1]
		digits := strings.NewReplacer(" ", "", "-", "").Replace(text[start:end])

		if len(digits) < 13 || len(digits) > 19 {
			continue
		}
		if !luhnCheck(digits) {
			continue
		}

		spans = append(spans, pii.Span{
			Category:   pii.CategoryPaymentCard,
			Text:       text[start:end],
			Start:      start,
			End:        end,
			Confidence: 1.0,
			Source:     d.GetName(),
		})
	}
	return spans, nil
}

// Close implements the Detector interface
func (d *PaymentCardDetector) Close() error {
	return nil
}

// luhnCheck doubles every second digit from the right, subtracts 9
// from doubled values above 9, and accepts iff the sum is divisible
// by 10
func luhnCheck(digits string) bool {
	sum := 0
	for i := 0; i < len(digits); i++ {
		digit := int(digits[len(digits)-1-i] - '0')
		if i%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return sum%10 == 0
}
