package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConfig holds the connection settings for the Postgres store
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// PostgresMappingStore implements MappingStore on PostgreSQL
type PostgresMappingStore struct {
	db *sql.DB
}

// NewPostgresMappingStore opens the connection pool, verifies it, and
// creates the mappings table if needed
func NewPostgresMappingStore(config PostgresConfig) (*PostgresMappingStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTableIfNotExists(db); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresMappingStore{db: db}, nil
}

// createTableIfNotExists creates the pseudonym_mappings table
func createTableIfNotExists(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS pseudonym_mappings (
		id SERIAL PRIMARY KEY,
		original_value VARCHAR(500) NOT NULL UNIQUE,
		pseudonym VARCHAR(500) NOT NULL UNIQUE,
		category VARCHAR(50) NOT NULL,
		confidence REAL DEFAULT 1.0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		last_accessed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		access_count INTEGER DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_pseudonym_mappings_original ON pseudonym_mappings(original_value);
	CREATE INDEX IF NOT EXISTS idx_pseudonym_mappings_pseudonym ON pseudonym_mappings(pseudonym);
	CREATE INDEX IF NOT EXISTS idx_pseudonym_mappings_created_at ON pseudonym_mappings(created_at);
	`

	_, err := db.Exec(query)
	return err
}

// StoreMapping upserts a pseudonym mapping, bumping access statistics
// on conflict
func (p *PostgresMappingStore) StoreMapping(ctx context.Context, original, pseudonym, category string, confidence float64) error {
	query := `
	INSERT INTO pseudonym_mappings (original_value, pseudonym, category, confidence, created_at, last_accessed_at, access_count)
	VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
	ON CONFLICT (original_value)
	DO UPDATE SET
		last_accessed_at = NOW(),
		access_count = pseudonym_mappings.access_count + 1,
		confidence = EXCLUDED.confidence
	`

	_, err := p.db.ExecContext(ctx, query, original, pseudonym, category, confidence)
	return err
}

// getValue looks up one direction of the mapping and updates access
// statistics on a hit
func (p *PostgresMappingStore) getValue(ctx context.Context, key string, byOriginal bool) (string, bool, error) {
	var query, updateQuery string
	if byOriginal {
		query = `SELECT pseudonym FROM pseudonym_mappings WHERE original_value = $1`
		updateQuery = `UPDATE pseudonym_mappings SET last_accessed_at = NOW(), access_count = access_count + 1 WHERE original_value = $1`
	} else {
		query = `SELECT original_value FROM pseudonym_mappings WHERE pseudonym = $1`
		updateQuery = `UPDATE pseudonym_mappings SET last_accessed_at = NOW(), access_count = access_count + 1 WHERE pseudonym = $1`
	}

	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}

	if _, err := p.db.ExecContext(ctx, updateQuery, key); err != nil {
		fmt.Printf("Warning: failed to update access statistics: %v\n", err)
	}

	return value, true, nil
}

// GetPseudonym retrieves the pseudonym for an original value
func (p *PostgresMappingStore) GetPseudonym(ctx context.Context, original string) (string, bool, error) {
	return p.getValue(ctx, original, true)
}

// GetOriginal retrieves the original value for a pseudonym
func (p *PostgresMappingStore) GetOriginal(ctx context.Context, pseudonym string) (string, bool, error) {
	return p.getValue(ctx, pseudonym, false)
}

// DeleteMapping removes a mapping by its original value
func (p *PostgresMappingStore) DeleteMapping(ctx context.Context, original string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM pseudonym_mappings WHERE original_value = $1`, original)
	return err
}

// CleanupOldMappings removes mappings older than the given age
func (p *PostgresMappingStore) CleanupOldMappings(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM pseudonym_mappings WHERE created_at < NOW() - $1::interval`
	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))

	result, err := p.db.ExecContext(ctx, query, interval)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (p *PostgresMappingStore) Close() error {
	return p.db.Close()
}
