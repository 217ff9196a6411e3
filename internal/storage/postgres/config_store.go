package postgres

import (
	"context"
	"fmt"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// Get retrieves a config entry. Returns ErrNotFound if the key does not exist.
func (s *ConfigStore) Get(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT key, value, updated_at
		FROM app_config
		WHERE key = $1
	`, key)

	var e domain.ConfigEntry
	if err := row.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get config %s: %w", key, err)
	}
	return &e, nil
}

// Set creates or updates a config entry.
func (s *ConfigStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}
