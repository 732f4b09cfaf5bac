package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hannes/pii-shield/pii"
)

func verdictResponse(t *testing.T, verdicts []verdict) []byte {
	t.Helper()
	inner, err := json.Marshal(verdicts)
	if err != nil {
		t.Fatalf("Failed to marshal verdicts: %v", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"content": []map[string]string{
			{"type": "text", "text": string(inner)},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}
	return body
}

func TestAnthropicAdjudicator_Adjudicate(t *testing.T) {
	var gotPath, gotAPIKey, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.Header().Set("Content-Type", "application/json")
		w.Write(verdictResponse(t, []verdict{
			{Text: "Hans Mueller", IsPII: true, Confidence: 0.95, Reason: "Personal name"},
			{Text: "SAP", IsPII: false, Confidence: 0.1, Reason: "Company name"},
		}))
	}))
	defer server.Close()

	adjudicator := NewAnthropicAdjudicator(AnthropicConfig{
		BaseURL:           server.URL,
		APIKey:            "test-key",
		RequestsPerSecond: 100,
	})

	text := "Hans Mueller arbeitet bei SAP."
	needsReview := pii.MatchSet{
		{Category: pii.CategoryName, Text: "Hans Mueller", Start: 0, End: 12, Confidence: 0.7, Source: "ner"},
		{Category: pii.CategoryName, Text: "SAP", Start: 26, End: 29, Confidence: 0.6, Source: "ner"},
	}

	replacement, err := adjudicator.Adjudicate(context.Background(), text, needsReview)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotPath != "/messages" {
		t.Errorf("Expected request to /messages, got %s", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("Expected x-api-key header, got %q", gotAPIKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("Expected anthropic-version %q, got %q", anthropicVersion, gotVersion)
	}
	if len(replacement) != 1 {
		t.Fatalf("Expected 1 confirmed span, got %d: %+v", len(replacement), replacement)
	}
	if replacement[0].Text != "Hans Mueller" || replacement[0].Confidence != 0.95 {
		t.Errorf("Expected 'Hans Mueller' at 0.95, got %+v", replacement[0])
	}
}

func TestAnthropicAdjudicator_EmptyInput(t *testing.T) {
	adjudicator := NewAnthropicAdjudicator(AnthropicConfig{BaseURL: "http://unused.invalid"})

	replacement, err := adjudicator.Adjudicate(context.Background(), "Text.", pii.MatchSet{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(replacement) != 0 {
		t.Errorf("Expected empty replacement, got %+v", replacement)
	}
}

func TestAnthropicAdjudicator_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adjudicator := NewAnthropicAdjudicator(AnthropicConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
	})

	needsReview := pii.MatchSet{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
	}
	if _, err := adjudicator.Adjudicate(context.Background(), "Hans war da.", needsReview); err == nil {
		t.Error("Expected an error for an upstream failure")
	}
}

func TestAnthropicAdjudicator_Batching(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write(verdictResponse(t, []verdict{}))
	}))
	defer server.Close()

	adjudicator := NewAnthropicAdjudicator(AnthropicConfig{
		BaseURL:           server.URL,
		BatchSize:         2,
		RequestsPerSecond: 100,
	})

	// Three sentences, batch size two: two API calls expected.
	text := "Hans hier. Anna dort. Bernd weg."
	needsReview := pii.MatchSet{
		{Category: pii.CategoryName, Text: "Hans", Start: 0, End: 4, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Anna", Start: 11, End: 15, Confidence: 0.7},
		{Category: pii.CategoryName, Text: "Bernd", Start: 22, End: 27, Confidence: 0.7},
	}

	replacement, err := adjudicator.Adjudicate(context.Background(), text, needsReview)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if requests != 2 {
		t.Errorf("Expected 2 API calls, got %d", requests)
	}
	// All verdicts missing: every span must survive at its original
	// confidence rather than vanish.
	if len(replacement) != 3 {
		t.Errorf("Expected all spans kept without verdicts, got %d", len(replacement))
	}
}

func TestNewAnthropicAdjudicator_Defaults(t *testing.T) {
	adjudicator := NewAnthropicAdjudicator(AnthropicConfig{})
	if adjudicator.baseURL != "https://api.anthropic.com/v1" {
		t.Errorf("Expected default base URL, got %q", adjudicator.baseURL)
	}
	if adjudicator.batchSize != DefaultBatchSize {
		t.Errorf("Expected default batch size %d, got %d", DefaultBatchSize, adjudicator.batchSize)
	}
	if adjudicator.model == "" {
		t.Error("Expected a default model")
	}
}
