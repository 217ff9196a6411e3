package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

func TestConfigStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewConfigStore(pool)

	_, err := store.Get(ctx, domain.ConfigKeyTerminalPaths)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, domain.ConfigKeyTerminalPaths, `C:\MT5\terminal64.exe`))
	require.NoError(t, store.Set(ctx, domain.ConfigKeyTerminalPaths, `C:\A\terminal64.exe;C:\B\terminal64.exe`))

	got, err := store.Get(ctx, domain.ConfigKeyTerminalPaths)
	require.NoError(t, err)
	require.NotNil(t, got.Value)
	assert.Equal(t, `C:\A\terminal64.exe;C:\B\terminal64.exe`, *got.Value)
}

func TestCheckSchema_MigratedDatabase(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	issues, err := CheckSchema(context.Background(), pool)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckSchema_MissingColumn(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `ALTER TABLE eas DROP COLUMN description`)
	require.NoError(t, err)

	issues, err := CheckSchema(ctx, pool)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, SchemaIssue{Table: "eas", Column: "description"}, issues[0])
}
