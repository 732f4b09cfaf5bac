package store

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds one mapping with its creation time for cleanup
type memoryEntry struct {
	pseudonym string
	createdAt time.Time
}

// MemoryMappingStore implements MappingStore with in-process maps.
// It is the default backend when no database is configured and is
// safe for concurrent use.
type MemoryMappingStore struct {
	mutex               sync.RWMutex
	originalToPseudonym map[string]memoryEntry
	pseudonymToOriginal map[string]string
}

// NewMemoryMappingStore creates an empty in-memory mapping store
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{
		originalToPseudonym: make(map[string]memoryEntry),
		pseudonymToOriginal: make(map[string]string),
	}
}

// StoreMapping records a pseudonym for an original value
func (m *MemoryMappingStore) StoreMapping(ctx context.Context, original, pseudonym, category string, confidence float64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.originalToPseudonym[original]; ok {
		delete(m.pseudonymToOriginal, existing.pseudonym)
	}
	m.originalToPseudonym[original] = memoryEntry{pseudonym: pseudonym, createdAt: time.Now()}
	m.pseudonymToOriginal[pseudonym] = original
	return nil
}

// GetPseudonym retrieves the pseudonym for an original value
func (m *MemoryMappingStore) GetPseudonym(ctx context.Context, original string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, ok := m.originalToPseudonym[original]
	return entry.pseudonym, ok, nil
}

// GetOriginal retrieves the original value for a pseudonym
func (m *MemoryMappingStore) GetOriginal(ctx context.Context, pseudonym string) (string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	original, ok := m.pseudonymToOriginal[pseudonym]
	return original, ok, nil
}

// DeleteMapping removes a mapping by its original value
func (m *MemoryMappingStore) DeleteMapping(ctx context.Context, original string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if entry, ok := m.originalToPseudonym[original]; ok {
		delete(m.pseudonymToOriginal, entry.pseudonym)
		delete(m.originalToPseudonym, original)
	}
	return nil
}

// CleanupOldMappings removes mappings older than the given age
func (m *MemoryMappingStore) CleanupOldMappings(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var removed int64
	for original, entry := range m.originalToPseudonym {
		if entry.createdAt.Before(cutoff) {
			delete(m.pseudonymToOriginal, entry.pseudonym)
			delete(m.originalToPseudonym, original)
			removed++
		}
	}
	return removed, nil
}

// Close implements MappingStore; nothing to release
func (m *MemoryMappingStore) Close() error {
	return nil
}
