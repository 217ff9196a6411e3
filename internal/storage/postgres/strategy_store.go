package postgres

import (
	"context"
	"fmt"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
// Registrations are inserted through DealStore.CommitBatch so they share the deal transaction.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Exists checks whether a registration exists for (magic, account).
func (s *StrategyStore) Exists(ctx context.Context, key domain.StrategyKey) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM eas WHERE magic_number = $1 AND account_id = $2)
	`, key.MagicNumber, key.AccountID)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check strategy exists: %w", err)
	}
	return exists, nil
}

// GetByAccount retrieves all registrations for an account, ordered by magic number ASC.
func (s *StrategyStore) GetByAccount(ctx context.Context, accountID int64) ([]*domain.StrategyRegistration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT magic_number, account_id, name, description, created_at
		FROM eas
		WHERE account_id = $1
		ORDER BY magic_number ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("get strategies by account: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategyRegistration
	for rows.Next() {
		var r domain.StrategyRegistration
		if err := rows.Scan(&r.MagicNumber, &r.AccountID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan strategy row: %w", err)
		}
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy rows: %w", err)
	}

	return result, nil
}
