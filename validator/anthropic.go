package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hannes/pii-shield/pii"
)

const (
	// anthropicVersion is the required API version header value
	anthropicVersion = "2023-06-01"

	// DefaultBatchSize is the number of sentence groups sent per API
	// call; batching cuts the call count by roughly that factor
	DefaultBatchSize = 10

	// maxTokensPerSpan sizes the response budget per reviewed span
	maxTokensPerSpan = 150
)

// AnthropicAdjudicator validates low-confidence matches against a
// Claude-style messages endpoint. It batches sentence groups into
// single calls and rate-limits requests so concurrent pipeline runs
// cannot overrun the API.
type AnthropicAdjudicator struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
}

// AnthropicConfig configures the adjudicator client
type AnthropicConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	BatchSize         int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewAnthropicAdjudicator creates an adjudicator client. Zero-valued
// config fields fall back to sensible defaults.
func NewAnthropicAdjudicator(cfg AnthropicConfig) *AnthropicAdjudicator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20250929"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &AnthropicAdjudicator{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// GetName returns the adjudicator name
func (a *AnthropicAdjudicator) GetName() string {
	return "anthropic"
}

// verdict is one entry of the model's JSON array response
type verdict struct {
	Text       string  `json:"text"`
	IsPII      bool    `json:"is_pii"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Adjudicate groups the needs-review spans by sentence, sends them in
// batches, and returns the replacement list: confirmed spans with
// adjusted confidence, rejected spans omitted. Any transport or parse
// failure returns an error with the input untouched so the caller can
// mark the spans unresolved.
func (a *AnthropicAdjudicator) Adjudicate(ctx context.Context, text string, needsReview pii.MatchSet) (pii.MatchSet, error) {
	if len(needsReview) == 0 {
		return pii.MatchSet{}, nil
	}

	groups := GroupBySentence(text, needsReview)

	replacement := pii.MatchSet{}
	for offset := 0; offset < len(groups); offset += a.batchSize {
		limit := offset + a.batchSize
		if limit > len(groups) {
			limit = len(groups)
		}
		confirmed, err := a.adjudicateBatch(ctx, groups[offset:limit])
		if err != nil {
			return nil, fmt.Errorf("adjudication batch failed: %w", err)
		}
		replacement = append(replacement, confirmed...)
	}

	replacement.SortByPosition()
	return replacement, nil
}

// adjudicateBatch sends one API call covering a batch of sentence
// groups and maps the verdicts back onto the spans
func (a *AnthropicAdjudicator) adjudicateBatch(ctx context.Context, batch []SentenceGroup) (pii.MatchSet, error) {
	var spans []pii.Span
	var promptParts []string
	for i, group := range batch {
		spans = append(spans, group.Spans...)
		var items []string
		for _, span := range group.Spans {
			items = append(items, fmt.Sprintf("  - %q (category: %s, confidence: %.0f%%)",
				span.Text, span.Category, span.Confidence*100))
		}
		promptParts = append(promptParts, fmt.Sprintf("SENTENCE_%d: %q\nITEMS_%d:\n%s",
			i+1, group.Sentence, i+1, strings.Join(items, "\n")))
	}

	prompt := fmt.Sprintf(`Analyze these sentences for PII (Personal Identifiable Information):

%s

For each detected item, determine if it is genuine PII identifying a specific individual.
Consider: Could this be a business name, street name, product name, or non-personal reference?

Respond with a JSON array containing one object per detected item (across ALL sentences):
[
  {"text": "Hans Mueller", "is_pii": true, "confidence": 0.95, "reason": "Personal name"},
  {"text": "SAP", "is_pii": false, "confidence": 0.1, "reason": "Company name"}
]

Return ONLY the JSON array, no markdown. Include results for every detected item.`,
		strings.Join(promptParts, "\n\n"))

	responseText, err := a.complete(ctx, prompt, maxTokensPerSpan*len(spans))
	if err != nil {
		return nil, err
	}

	return mapVerdicts(responseText, spans)
}

// complete performs one rate-limited messages API call and extracts
// the text of the first content block
func (a *AnthropicAdjudicator) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"model":      a.model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	var result string
	for _, block := range response.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	if result == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return result, nil
}

// mapVerdicts parses the JSON verdict array and matches verdicts to
// spans by text. Confirmed spans keep their position with the
// adjudicated confidence; rejected spans are omitted. A span without
// a verdict stays confirmed at its original confidence rather than
// being silently dropped.
func mapVerdicts(responseText string, spans []pii.Span) (pii.MatchSet, error) {
	// Strip markdown code fences if the model added them anyway
	if strings.Contains(responseText, "```") {
		start := strings.Index(responseText, "[")
		end := strings.LastIndex(responseText, "]")
		if start != -1 && end > start {
			responseText = responseText[start : end+1]
		}
	}

	var verdicts []verdict
	if err := json.Unmarshal([]byte(responseText), &verdicts); err != nil {
		return nil, fmt.Errorf("failed to parse verdicts: %w", err)
	}

	replacement := pii.MatchSet{}
	used := make([]bool, len(verdicts))
	for _, span := range spans {
		matched := false
		for i, v := range verdicts {
			if used[i] || !strings.EqualFold(v.Text, span.Text) {
				continue
			}
			used[i] = true
			matched = true
			if v.IsPII {
				confidence := v.Confidence
				if confidence < 0 || confidence > 1 {
					confidence = span.Confidence
				}
				replacement = append(replacement, span.WithConfidence(confidence))
			}
			break
		}
		if !matched {
			replacement = append(replacement, span)
		}
	}

	return replacement, nil
}
