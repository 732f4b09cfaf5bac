// Package store persists the mapping between hashed pseudonyms and
// original PII values so that holders of the hashing salt can
// re-identify pseudonymized text. The detection engine itself is
// stateless; the store hangs off the service layer and is only
// written when the hashing strategy is applied.
package store

import (
	"context"
	"time"
)

// MappingStore maps pseudonyms to originals and back
type MappingStore interface {
	// StoreMapping records a pseudonym for an original value with the
	// category and confidence of the detection that produced it
	StoreMapping(ctx context.Context, original, pseudonym, category string, confidence float64) error

	// GetPseudonym retrieves the pseudonym for an original value
	GetPseudonym(ctx context.Context, original string) (string, bool, error)

	// GetOriginal retrieves the original value for a pseudonym
	GetOriginal(ctx context.Context, pseudonym string) (string, bool, error)

	// DeleteMapping removes a mapping by its original value
	DeleteMapping(ctx context.Context, original string) error

	// CleanupOldMappings removes mappings older than the given age and
	// returns the number removed
	CleanupOldMappings(ctx context.Context, olderThan time.Duration) (int64, error)

	// Close releases the store's resources
	Close() error
}
