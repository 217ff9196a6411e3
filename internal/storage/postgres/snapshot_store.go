package postgres

import (
	"context"
	"fmt"
	"time"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a snapshot and sets its ID from the sequence.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.AccountSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO account_snapshots (
			account_id, timestamp, balance, equity, margin,
			free_margin, margin_level, open_pnl, extra_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		snap.AccountID,
		snap.Timestamp,
		snap.Balance,
		snap.Equity,
		snap.Margin,
		snap.FreeMargin,
		snap.MarginLevel,
		snap.OpenPnL,
		snap.ExtraData,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("insert account snapshot: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, accountID int64, start, end time.Time) ([]*domain.AccountSnapshot, error) {
	query := `
		SELECT id, account_id, timestamp, balance, equity, margin,
		       free_margin, margin_level, open_pnl, extra_data
		FROM account_snapshots
		WHERE account_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.AccountSnapshot
	for rows.Next() {
		var snap domain.AccountSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.AccountID,
			&snap.Timestamp,
			&snap.Balance,
			&snap.Equity,
			&snap.Margin,
			&snap.FreeMargin,
			&snap.MarginLevel,
			&snap.OpenPnL,
			&snap.ExtraData,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = snap.Timestamp.UTC()
		result = append(result, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return result, nil
}
