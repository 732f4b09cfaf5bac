package detectors

import (
	"context"
	"net/netip"
	"regexp"

	"github.com/hannes/pii-shield/pii"
)

var (
	// ipv4Pattern collects dotted-quad candidates; octet range and
	// leading-zero rules are enforced by the address parser
	ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

	// ipv6Pattern covers full 8-group addresses and :: compression.
	// Alternatives with more groups after the compression come first;
	// matching is leftmost-first, so the reverse order would truncate
	// addresses like 2001:db8::1 at the compression.
	ipv6Pattern = regexp.MustCompile(
		`\b(?:` +
			`(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}|` +
			`[0-9a-fA-F]{1,4}:(?::[0-9a-fA-F]{1,4}){1,6}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,2}(?::[0-9a-fA-F]{1,4}){1,5}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,3}(?::[0-9a-fA-F]{1,4}){1,4}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,4}(?::[0-9a-fA-F]{1,4}){1,3}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,5}(?::[0-9a-fA-F]{1,4}){1,2}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}|` +
			`(?:[0-9a-fA-F]{1,4}:){1,7}:` +
			`)\b`)
)

// IPAddressDetector finds IPv4 and IPv6 addresses. Candidates are
// collected structurally and then validated with the standard
// library's address parser, which rejects out-of-range octets and
// ambiguous leading zeros.
type IPAddressDetector struct{}

func NewIPAddressDetector() *IPAddressDetector {
	return &IPAddressDetector{}
}

// GetName returns the name of this detector
func (d *IPAddressDetector) GetName() string {
	return "ip_address"
}

// Detect finds all valid IP addresses in the text
func (d *IPAddressDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span

	for _, match := range ipv4Pattern.FindAllStringIndex(text, -1) {
		start, end := match[0], match[1]
		addr, err := netip.ParseAddr(text[start:end])
		if err != nil || !addr.Is4() {
			continue
		}
		spans = append(spans, d.span(text, start, end))
	}

	for _, match := range ipv6Pattern.FindAllStringIndex(text, -1) {
		start, end := match[0], match[1]
		addr, err := netip.ParseAddr(text[start:end])
		if err != nil || !addr.Is6() {
			continue
		}
		spans = append(spans, d.span(text, start, end))
	}

	return spans, nil
}

// Close implements the Detector interface
func (d *IPAddressDetector) Close() error {
	return nil
}

func (d *IPAddressDetector) span(text string, start, end int) pii.Span {
	return pii.Span{
		Category:   pii.CategoryIPAddress,
		Text:       text[start:end],
		Start:      start,
		End:        end,
		Confidence: 1.0,
		Source:     d.GetName(),
	}
}
