package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/hannes/pii-shield/config"
	"github.com/hannes/pii-shield/pii/detectors"
	"github.com/hannes/pii-shield/pipeline"
	"github.com/hannes/pii-shield/server"
	"github.com/hannes/pii-shield/store"
	"github.com/hannes/pii-shield/validator"
)

const TRUE = "true"

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file from current directory")
	} else {
		log.Printf("Note: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "Path to JSON config file")
	flag.Parse()

	if *configPath != "" {
		loadConfigFromFile(*configPath, cfg)
	}

	loadConfigFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Printf("Warning: failed to initialize Sentry: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	registry := detectors.DefaultRegistry()
	if cfg.NER.Enabled {
		ner, err := detectors.NewNERDetector(cfg.NER.ModelPath, cfg.NER.TokenizerPath, cfg.NER.LabelPath)
		if err != nil {
			log.Printf("Warning: NER detector unavailable, continuing with pattern detectors only: %v", err)
		} else {
			registry.Register(ner)
			log.Println("NER detector enabled")
		}
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Printf("Failed to close detectors: %v", err)
		}
	}()

	processor := pipeline.NewProcessor(registry, cfg.ConfidenceThreshold)
	if cfg.Adjudicator.Enabled {
		processor.WithAdjudicator(validator.NewAnthropicAdjudicator(validator.AnthropicConfig{
			BaseURL:           cfg.Adjudicator.BaseURL,
			APIKey:            cfg.Adjudicator.APIKey,
			Model:             cfg.Adjudicator.Model,
			BatchSize:         cfg.Adjudicator.BatchSize,
			RequestsPerSecond: cfg.Adjudicator.RequestsPerSecond,
		}))
		log.Printf("Adjudicator enabled with model %s", cfg.Adjudicator.Model)
	}

	mappings := buildMappingStore(cfg)
	defer func() {
		if err := mappings.Close(); err != nil {
			log.Printf("Failed to close mapping store: %v", err)
		}
	}()

	if cfg.Database.Enabled && cfg.Database.CleanupHours > 0 {
		go runMappingCleanup(mappings, time.Duration(cfg.Database.CleanupHours)*time.Hour)
	}

	srv := server.NewServer(cfg, processor, mappings)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildMappingStore creates the Postgres store when configured,
// falling back to the in-memory store
func buildMappingStore(cfg *config.Config) store.MappingStore {
	if !cfg.Database.Enabled {
		log.Println("Using in-memory pseudonym storage")
		return store.NewMemoryMappingStore()
	}

	pg, err := store.NewPostgresMappingStore(store.PostgresConfig{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Database:     cfg.Database.Database,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetimeDuration(),
	})
	if err != nil {
		log.Printf("Warning: database unavailable, falling back to in-memory storage: %v", err)
		return store.NewMemoryMappingStore()
	}
	log.Println("Database pseudonym storage enabled")
	return pg
}

// runMappingCleanup periodically removes old pseudonym mappings
func runMappingCleanup(mappings store.MappingStore, maxAge time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		removed, err := mappings.CleanupOldMappings(ctx, maxAge)
		cancel()
		if err != nil {
			log.Printf("Mapping cleanup failed: %v", err)
			continue
		}
		if removed > 0 {
			log.Printf("Cleaned up %d old pseudonym mappings", removed)
		}
	}
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(path string, cfg *config.Config) {
	// #nosec G304 - Config file path is controlled by application, not user input
	file, err := os.Open(path)
	if err != nil {
		log.Printf("Failed to open config file: %v", err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Failed to close config file: %v", err)
		}
	}()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		log.Printf("Failed to decode config file: %v", err)
	}
}

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv(cfg *config.Config) {
	loadApplicationConfig(cfg)
	loadAdjudicatorConfig(cfg)
	loadDatabaseConfig(cfg)
	loadNERConfig(cfg)
	loadLoggingConfig(cfg)
}

// loadApplicationConfig loads application configuration from environment variables
func loadApplicationConfig(cfg *config.Config) {
	if listenPort := os.Getenv("LISTEN_PORT"); listenPort != "" {
		cfg.ListenPort = listenPort
	}

	if threshold := os.Getenv("CONFIDENCE_THRESHOLD"); threshold != "" {
		if value, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.ConfidenceThreshold = value
		}
	}

	if salt := os.Getenv("HASH_SALT"); salt != "" {
		cfg.Strategy.HashSalt = salt
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.SentryDSN = dsn
	}
}

// loadAdjudicatorConfig loads adjudicator configuration from environment variables
func loadAdjudicatorConfig(cfg *config.Config) {
	if enabled := os.Getenv("ADJUDICATOR_ENABLED"); enabled != "" {
		cfg.Adjudicator.Enabled = enabled == TRUE
	}

	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		cfg.Adjudicator.BaseURL = baseURL
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Adjudicator.APIKey = apiKey
		log.Printf("Loaded ANTHROPIC_API_KEY from environment (length: %d)", len(apiKey))
	}

	if model := os.Getenv("ADJUDICATOR_MODEL"); model != "" {
		cfg.Adjudicator.Model = model
	}

	if batchSize := os.Getenv("ADJUDICATOR_BATCH_SIZE"); batchSize != "" {
		if value, err := strconv.Atoi(batchSize); err == nil {
			cfg.Adjudicator.BatchSize = value
		}
	}
}

// loadDatabaseConfig loads database configuration from environment variables
func loadDatabaseConfig(cfg *config.Config) {
	if dbEnabled := os.Getenv("DB_ENABLED"); dbEnabled != "" {
		cfg.Database.Enabled = dbEnabled == TRUE
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}

	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.Username = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}

	if sslMode := os.Getenv("DB_SSL_MODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	if cleanupHours := os.Getenv("DB_CLEANUP_HOURS"); cleanupHours != "" {
		if hours, err := strconv.Atoi(cleanupHours); err == nil {
			cfg.Database.CleanupHours = hours
		}
	}
}

// loadNERConfig loads NER detector configuration from environment variables
func loadNERConfig(cfg *config.Config) {
	if enabled := os.Getenv("NER_ENABLED"); enabled != "" {
		cfg.NER.Enabled = enabled == TRUE
	}

	if modelPath := os.Getenv("NER_MODEL_PATH"); modelPath != "" {
		cfg.NER.ModelPath = modelPath
	}

	if tokenizerPath := os.Getenv("NER_TOKENIZER_PATH"); tokenizerPath != "" {
		cfg.NER.TokenizerPath = tokenizerPath
	}

	if labelPath := os.Getenv("NER_LABEL_PATH"); labelPath != "" {
		cfg.NER.LabelPath = labelPath
	}
}

// loadLoggingConfig loads logging configuration from environment variables
func loadLoggingConfig(cfg *config.Config) {
	if logRequests := os.Getenv("LOG_REQUESTS"); logRequests != "" {
		cfg.Logging.LogRequests = logRequests == TRUE
	}

	if logPIIChanges := os.Getenv("LOG_PII_CHANGES"); logPIIChanges != "" {
		cfg.Logging.LogPIIChanges = logPIIChanges == TRUE
	}
}
