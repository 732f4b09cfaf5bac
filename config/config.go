package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds pseudonym store configuration
type DatabaseConfig struct {
	Enabled      bool   // Whether to use Postgres-backed mapping storage
	Host         string // Database host
	Port         int    // Database port
	Database     string // Database name
	Username     string // Database username
	Password     string // Database password
	SSLMode      string // SSL mode (disable, require, etc.)
	MaxOpenConns int    // Maximum open connections
	MaxIdleConns int    // Maximum idle connections
	MaxLifetime  int    // Connection max lifetime in seconds
	CleanupHours int    // Hours after which to cleanup old mappings
}

// AdjudicatorConfig holds the LLM adjudicator client configuration
type AdjudicatorConfig struct {
	Enabled           bool    // Whether to adjudicate needs-review matches
	BaseURL           string  // Messages API base URL
	APIKey            string  // API key
	Model             string  // Model identifier
	BatchSize         int     // Sentence groups per API call
	RequestsPerSecond float64 // Rate limit for API calls
}

// NERConfig holds the optional ONNX NER detector configuration
type NERConfig struct {
	Enabled       bool   // Whether to run the NER detector
	ModelPath     string // Path to the ONNX model file
	TokenizerPath string // Path to the tokenizer JSON file
	LabelPath     string // Path to the label mapping JSON file
}

// StrategyConfig holds the default transformation parameters
type StrategyConfig struct {
	MaskChar     string // Mask character for the masking strategy
	VisibleChars int    // Visible characters on each side when masking
	HashSalt     string // Salt for the hashing strategy
	HashLength   int    // Hex output length for the hashing strategy
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	LogRequests   bool // Log request content
	LogPIIChanges bool // Log PII detection counts per run
}

// Config holds all configuration for the PII shield service
type Config struct {
	ListenPort          string
	ConfidenceThreshold float64
	SentryDSN           string
	Strategy            StrategyConfig
	Adjudicator         AdjudicatorConfig
	NER                 NERConfig
	Database            DatabaseConfig
	Logging             LoggingConfig
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenPort:          ":8080",
		ConfidenceThreshold: 0.85,
		Strategy: StrategyConfig{
			MaskChar:     "*",
			VisibleChars: 3,
			HashSalt:     "",
			HashLength:   16,
		},
		Adjudicator: AdjudicatorConfig{
			Enabled:           false,
			BaseURL:           "https://api.anthropic.com/v1",
			Model:             "claude-haiku-4-5-20250929",
			BatchSize:         10,
			RequestsPerSecond: 2,
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "piishield",
			Username:     "postgres",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxLifetime:  300,
			CleanupHours: 24,
		},
		Logging: LoggingConfig{
			LogRequests:   true,
			LogPIIChanges: true,
		},
	}
}

// MaxLifetimeDuration returns the connection lifetime as a Duration
func (dc DatabaseConfig) MaxLifetimeDuration() time.Duration {
	return time.Duration(dc.MaxLifetime) * time.Second
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if err := validatePort(c.ListenPort, "ListenPort"); err != nil {
		return err
	}
	if c.ConfidenceThreshold < 0.0 || c.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("ConfidenceThreshold: must be between 0.0 and 1.0 (current value: %g)", c.ConfidenceThreshold)
	}
	if c.Strategy.VisibleChars < 0 {
		return fmt.Errorf("Strategy.VisibleChars: must be non-negative (current value: %d)", c.Strategy.VisibleChars)
	}
	if c.Strategy.HashLength < 1 || c.Strategy.HashLength > 64 {
		return fmt.Errorf("Strategy.HashLength: must be between 1 and 64 (current value: %d)", c.Strategy.HashLength)
	}
	if c.Adjudicator.Enabled && c.Adjudicator.APIKey == "" {
		return fmt.Errorf("Adjudicator.APIKey: required when the adjudicator is enabled")
	}
	return nil
}

// validatePort checks that a port is in the ":PORT" format with a
// numeric port in range
func validatePort(port string, fieldName string) error {
	if port == "" {
		return fmt.Errorf("%s: port cannot be empty", fieldName)
	}
	if !strings.HasPrefix(port, ":") {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	number, err := strconv.Atoi(port[1:])
	if err != nil {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	if number < 1 || number > 65535 {
		return fmt.Errorf("%s: port must be between 1 and 65535 (current value: %d)", fieldName, number)
	}
	return nil
}
