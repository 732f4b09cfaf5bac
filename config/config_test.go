package config

import (
	"strings"
	"testing"
)

func TestValidatePort(t *testing.T) {
	testCases := []struct {
		name        string
		port        string
		expectError bool
	}{
		{"valid port", ":8080", false},
		{"minimum port", ":1", false},
		{"maximum port", ":65535", false},
		{"empty port", "", true},
		{"missing colon", "8080", true},
		{"non-numeric", ":abc", true},
		{"zero port", ":0", true},
		{"port too large", ":70000", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePort(tc.port, "ListenPort")
			if tc.expectError && err == nil {
				t.Errorf("Expected an error for port %q", tc.port)
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no error for port %q, got %v", tc.port, err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:        "threshold above one",
			mutate:      func(c *Config) { c.ConfidenceThreshold = 1.5 },
			expectError: "ConfidenceThreshold",
		},
		{
			name:        "negative threshold",
			mutate:      func(c *Config) { c.ConfidenceThreshold = -0.1 },
			expectError: "ConfidenceThreshold",
		},
		{
			name:        "negative visible chars",
			mutate:      func(c *Config) { c.Strategy.VisibleChars = -1 },
			expectError: "Strategy.VisibleChars",
		},
		{
			name:        "hash length too long",
			mutate:      func(c *Config) { c.Strategy.HashLength = 65 },
			expectError: "Strategy.HashLength",
		},
		{
			name:        "hash length zero",
			mutate:      func(c *Config) { c.Strategy.HashLength = 0 },
			expectError: "Strategy.HashLength",
		},
		{
			name:        "adjudicator enabled without key",
			mutate:      func(c *Config) { c.Adjudicator.Enabled = true },
			expectError: "Adjudicator.APIKey",
		},
		{
			name: "adjudicator enabled with key",
			mutate: func(c *Config) {
				c.Adjudicator.Enabled = true
				c.Adjudicator.APIKey = "sk-test"
			},
		},
		{
			name:        "bad listen port",
			mutate:      func(c *Config) { c.ListenPort = "8080" },
			expectError: "ListenPort",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.expectError == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.expectError) {
				t.Errorf("Expected error mentioning %s, got %v", tc.expectError, err)
			}
		})
	}
}

func TestDatabaseConfig_MaxLifetimeDuration(t *testing.T) {
	dc := DatabaseConfig{MaxLifetime: 300}
	if got := dc.MaxLifetimeDuration().Seconds(); got != 300 {
		t.Errorf("Expected 300 seconds, got %f", got)
	}
}
