package memory

import (
	"context"
	"sync"
	"time"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ConfigEntry
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		data: make(map[string]*domain.ConfigEntry),
	}
}

// Get retrieves a config entry. Returns ErrNotFound if the key does not exist.
func (s *ConfigStore) Get(_ context.Context, key string) (*domain.ConfigEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *e
	if e.Value != nil {
		v := *e.Value
		copy.Value = &v
	}
	return &copy, nil
}

// Set creates or updates a config entry.
func (s *ConfigStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &domain.ConfigEntry{
		Key:       key,
		Value:     &value,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ConfigStore = (*ConfigStore)(nil)
