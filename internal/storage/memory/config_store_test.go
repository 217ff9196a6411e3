package memory

import (
	"context"
	"errors"
	"testing"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	_, err := store.Get(ctx, domain.ConfigKeyTerminalPaths)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, domain.ConfigKeyTerminalPaths, `C:\a.exe;C:\b.exe`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, domain.ConfigKeyTerminalPaths, `C:\c.exe`); err != nil {
		t.Fatalf("Set (update) failed: %v", err)
	}

	got, err := store.Get(ctx, domain.ConfigKeyTerminalPaths)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value == nil || *got.Value != `C:\c.exe` {
		t.Errorf("Value mismatch: got %v", got.Value)
	}
}

func TestConfigStore_EmptyKey(t *testing.T) {
	store := NewConfigStore()
	if err := store.Set(context.Background(), "", "x"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
