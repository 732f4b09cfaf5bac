package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/hannes/pii-shield/config"
	"github.com/hannes/pii-shield/pii"
	"github.com/hannes/pii-shield/pii/strategies"
	"github.com/hannes/pii-shield/pipeline"
	"github.com/hannes/pii-shield/store"
)

// Server exposes the detection pipeline over HTTP
type Server struct {
	config    *config.Config
	processor *pipeline.Processor
	mappings  store.MappingStore
}

// NewServer creates a server over a processor and an optional
// pseudonym mapping store (nil disables mapping persistence)
func NewServer(cfg *config.Config, processor *pipeline.Processor, mappings store.MappingStore) *Server {
	return &Server{
		config:    cfg,
		processor: processor,
		mappings:  mappings,
	}
}

// DetectRequest is the body of POST /api/v1/detect
type DetectRequest struct {
	Text string `json:"text"`
}

// AnonymizeRequest is the body of POST /api/v1/anonymize
type AnonymizeRequest struct {
	Text      string   `json:"text"`
	Strategy  string   `json:"strategy"`
	Threshold *float64 `json:"threshold,omitempty"`
	Salt      string   `json:"salt,omitempty"`
}

// Summary aggregates per-run detection statistics
type Summary struct {
	PIIFound   bool           `json:"pii_found"`
	TotalCount int            `json:"total_count"`
	ByCategory map[string]int `json:"by_category"`
}

// DetectResponse is the body returned by POST /api/v1/detect
type DetectResponse struct {
	Matches          pii.MatchSet `json:"matches"`
	Summary          Summary      `json:"summary"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`
}

// AnonymizeResponse is the body returned by POST /api/v1/anonymize
type AnonymizeResponse struct {
	ID               string       `json:"id"`
	OriginalText     string       `json:"original_text"`
	ProcessedText    string       `json:"processed_text"`
	Matches          pii.MatchSet `json:"matches"`
	Unresolved       pii.MatchSet `json:"unresolved,omitempty"`
	Summary          Summary      `json:"summary"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting PII shield service on port %s", s.config.ListenPort)
	log.Printf("Confidence threshold: %.2f", s.config.ConfidenceThreshold)

	server := &http.Server{
		Addr:         s.config.ListenPort,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// Routes builds the request multiplexer
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthCheck)
	mux.HandleFunc("/api/v1/detect", s.handleDetect)
	mux.HandleFunc("/api/v1/anonymize", s.handleAnonymize)
	return mux
}

// healthCheck provides a simple health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.corsHandler(w, r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy","service":"PII Shield"}`)); err != nil {
		log.Printf("Failed to write health check response: %v", err)
	}
}

// corsHandler adds CORS headers to the response
func (s *Server) corsHandler(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleDetect runs detection only, leaving the text untouched
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if !s.acceptPost(w, r) {
		return
	}

	var request DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if s.config.Logging.LogRequests {
		log.Printf("Detect request: %d bytes of text", len(request.Text))
	}

	report, err := s.processor.Process(r.Context(), request.Text, nil)
	if err != nil {
		s.handleProcessError(w, err)
		return
	}

	if s.config.Logging.LogPIIChanges {
		log.Printf("Detected %d PII matches in request %s", report.PIICount(), report.ID)
	}

	s.writeJSON(w, DetectResponse{
		Matches:          report.Matches,
		Summary:          buildSummary(report),
		ProcessingTimeMS: report.ProcessingTimeMS,
	})
}

// handleAnonymize runs the full pipeline with the selected strategy
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	if !s.acceptPost(w, r) {
		return
	}

	var request AnonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if s.config.Logging.LogRequests {
		log.Printf("Anonymize request: strategy=%s, %d bytes of text", request.Strategy, len(request.Text))
	}

	strategy, err := s.buildStrategy(request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	threshold := s.config.ConfidenceThreshold
	if request.Threshold != nil {
		if *request.Threshold < 0 || *request.Threshold > 1 {
			http.Error(w, "Threshold must be between 0 and 1", http.StatusBadRequest)
			return
		}
		threshold = *request.Threshold
	}

	report, err := s.processor.ProcessWithThreshold(r.Context(), request.Text, strategy, threshold)
	if err != nil {
		s.handleProcessError(w, err)
		return
	}

	if s.config.Logging.LogPIIChanges {
		log.Printf("Anonymized %d PII matches with %s in request %s",
			report.PIICount(), strategy.GetName(), report.ID)
	}

	// Hashing produces stable pseudonyms; record them so salt holders
	// can re-identify later.
	if hashing, ok := strategy.(*strategies.HashingStrategy); ok && s.mappings != nil {
		s.recordMappings(r.Context(), hashing, report.Matches)
	}

	s.writeJSON(w, AnonymizeResponse{
		ID:               report.ID,
		OriginalText:     report.OriginalText,
		ProcessedText:    report.ProcessedText,
		Matches:          report.Matches,
		Unresolved:       report.Unresolved,
		Summary:          buildSummary(report),
		ProcessingTimeMS: report.ProcessingTimeMS,
	})
}

// buildStrategy resolves the strategy selector with per-request
// overrides layered over the configured defaults
func (s *Server) buildStrategy(request AnonymizeRequest) (strategies.Strategy, error) {
	switch request.Strategy {
	case "redaction":
		return strategies.NewRedactionStrategy(), nil
	case "masking":
		return &strategies.MaskingStrategy{
			MaskChar:     s.config.Strategy.MaskChar,
			VisibleChars: s.config.Strategy.VisibleChars,
		}, nil
	case "hashing":
		salt := request.Salt
		if salt == "" {
			salt = s.config.Strategy.HashSalt
		}
		return &strategies.HashingStrategy{
			Salt:   salt,
			Length: s.config.Strategy.HashLength,
		}, nil
	default:
		return nil, fmt.Errorf("Unknown strategy: %s. Available: [redaction masking hashing]", request.Strategy)
	}
}

// recordMappings persists pseudonym/original pairs for the run
func (s *Server) recordMappings(ctx context.Context, hashing *strategies.HashingStrategy, matches pii.MatchSet) {
	for _, span := range matches {
		pseudonym := hashing.Replacement(span)
		if err := s.mappings.StoreMapping(ctx, span.Text, pseudonym, string(span.Category), span.Confidence); err != nil {
			log.Printf("Failed to store pseudonym mapping: %v", err)
		}
	}
}

// handleProcessError maps pipeline errors to HTTP responses and
// reports unexpected ones to Sentry
func (s *Server) handleProcessError(w http.ResponseWriter, err error) {
	if err == pipeline.ErrEmptyInput {
		http.Error(w, "Text must not be empty", http.StatusBadRequest)
		return
	}
	if err == pipeline.ErrInvalidEncoding {
		http.Error(w, "Text must be valid UTF-8", http.StatusBadRequest)
		return
	}
	sentry.CaptureException(err)
	log.Printf("Processing failed: %v", err)
	http.Error(w, "Processing failed", http.StatusInternalServerError)
}

// acceptPost handles CORS preflight and rejects non-POST methods
func (s *Server) acceptPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions {
		s.corsHandler(w, r)
		w.WriteHeader(http.StatusOK)
		return false
	}
	s.corsHandler(w, r)
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeJSON encodes a response body as JSON
func (s *Server) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func buildSummary(report pii.ProcessingReport) Summary {
	byCategory := make(map[string]int, len(report.Counts))
	for category, count := range report.Counts {
		byCategory[string(category)] = count
	}
	return Summary{
		PIIFound:   report.PIIFound(),
		TotalCount: report.PIICount(),
		ByCategory: byCategory,
	}
}
