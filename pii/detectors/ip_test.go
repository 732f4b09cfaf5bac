package detectors

import (
	"context"
	"testing"

	"github.com/hannes/pii-shield/pii"
)

func TestIPAddressDetector_Detect(t *testing.T) {
	detector := NewIPAddressDetector()

	testCases := []struct {
		name          string
		text          string
		expectedCount int
		expectedText  string
	}{
		{
			name:          "valid IPv4",
			text:          "Zugriff von 192.168.1.100 aus",
			expectedCount: 1,
			expectedText:  "192.168.1.100",
		},
		{
			name:          "octet out of range",
			text:          "Zugriff von 256.1.1.1 aus",
			expectedCount: 0,
		},
		{
			name:          "leading zero octet rejected",
			text:          "Zugriff von 192.168.01.1 aus",
			expectedCount: 0,
		},
		{
			name:          "full IPv6",
			text:          "Host 2001:0db8:85a3:0000:0000:8a2e:0370:7334 erreichbar",
			expectedCount: 1,
			expectedText:  "2001:0db8:85a3:0000:0000:8a2e:0370:7334",
		},
		{
			name:          "compressed IPv6",
			text:          "Host 2001:db8::8a2e:370:7334 erreichbar",
			expectedCount: 1,
			expectedText:  "2001:db8::8a2e:370:7334",
		},
		{
			name:          "link-local shorthand",
			text:          "Host fe80::1 lokal",
			expectedCount: 1,
			expectedText:  "fe80::1",
		},
		{
			name:          "version string is not an address",
			text:          "Release 10.20.30 installiert",
			expectedCount: 0,
		},
		{
			name:          "no address",
			text:          "alles offline",
			expectedCount: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spans, err := detector.Detect(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(spans) != tc.expectedCount {
				t.Fatalf("Expected %d spans, got %d: %+v", tc.expectedCount, len(spans), spans)
			}
			if tc.expectedCount == 0 {
				return
			}
			span := spans[0]
			if span.Category != pii.CategoryIPAddress {
				t.Errorf("Expected category IP_ADDRESS, got %s", span.Category)
			}
			if span.Text != tc.expectedText {
				t.Errorf("Expected text %q, got %q", tc.expectedText, span.Text)
			}
			if span.Confidence != 1.0 {
				t.Errorf("Expected confidence 1.0, got %f", span.Confidence)
			}
		})
	}
}

func TestIPAddressDetector_MultipleAddresses(t *testing.T) {
	detector := NewIPAddressDetector()

	spans, err := detector.Detect(context.Background(), "von 10.0.0.1 nach 10.0.0.2")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Text != "10.0.0.1" || spans[1].Text != "10.0.0.2" {
		t.Errorf("Expected both addresses detected, got %q and %q", spans[0].Text, spans[1].Text)
	}
}
