package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryMappingStore_RoundTrip(t *testing.T) {
	store := NewMemoryMappingStore()
	ctx := context.Background()

	if err := store.StoreMapping(ctx, "hans@sap.com", "a1b2c3d4", "EMAIL", 1.0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	pseudonym, found, err := store.GetPseudonym(ctx, "hans@sap.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !found || pseudonym != "a1b2c3d4" {
		t.Errorf("Expected pseudonym a1b2c3d4, got %q (found=%v)", pseudonym, found)
	}

	original, found, err := store.GetOriginal(ctx, "a1b2c3d4")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !found || original != "hans@sap.com" {
		t.Errorf("Expected original hans@sap.com, got %q (found=%v)", original, found)
	}
}

func TestMemoryMappingStore_Missing(t *testing.T) {
	store := NewMemoryMappingStore()
	ctx := context.Background()

	if _, found, _ := store.GetPseudonym(ctx, "unknown"); found {
		t.Error("Expected no pseudonym for unknown original")
	}
	if _, found, _ := store.GetOriginal(ctx, "unknown"); found {
		t.Error("Expected no original for unknown pseudonym")
	}
}

func TestMemoryMappingStore_OverwriteReplacesReverseIndex(t *testing.T) {
	store := NewMemoryMappingStore()
	ctx := context.Background()

	store.StoreMapping(ctx, "hans@sap.com", "old-pseudonym", "EMAIL", 1.0)
	store.StoreMapping(ctx, "hans@sap.com", "new-pseudonym", "EMAIL", 1.0)

	if _, found, _ := store.GetOriginal(ctx, "old-pseudonym"); found {
		t.Error("Expected stale reverse mapping to be removed")
	}
	original, found, _ := store.GetOriginal(ctx, "new-pseudonym")
	if !found || original != "hans@sap.com" {
		t.Errorf("Expected new reverse mapping, got %q (found=%v)", original, found)
	}
}

func TestMemoryMappingStore_DeleteMapping(t *testing.T) {
	store := NewMemoryMappingStore()
	ctx := context.Background()

	store.StoreMapping(ctx, "hans@sap.com", "a1b2c3d4", "EMAIL", 1.0)
	if err := store.DeleteMapping(ctx, "hans@sap.com"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, found, _ := store.GetPseudonym(ctx, "hans@sap.com"); found {
		t.Error("Expected mapping to be deleted")
	}
	if _, found, _ := store.GetOriginal(ctx, "a1b2c3d4"); found {
		t.Error("Expected reverse mapping to be deleted")
	}
}

func TestMemoryMappingStore_CleanupOldMappings(t *testing.T) {
	store := NewMemoryMappingStore()
	ctx := context.Background()

	store.StoreMapping(ctx, "old@sap.com", "old-hash", "EMAIL", 1.0)
	// Backdate the entry past the cutoff.
	store.mutex.Lock()
	entry := store.originalToPseudonym["old@sap.com"]
	entry.createdAt = time.Now().Add(-48 * time.Hour)
	store.originalToPseudonym["old@sap.com"] = entry
	store.mutex.Unlock()

	store.StoreMapping(ctx, "new@sap.com", "new-hash", "EMAIL", 1.0)

	removed, err := store.CleanupOldMappings(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 mapping removed, got %d", removed)
	}
	if _, found, _ := store.GetPseudonym(ctx, "old@sap.com"); found {
		t.Error("Expected old mapping to be gone")
	}
	if _, found, _ := store.GetPseudonym(ctx, "new@sap.com"); !found {
		t.Error("Expected recent mapping to survive")
	}
}
