package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// SnapshotMirror copies account snapshots into ClickHouse for analytics.
// PostgreSQL stays the system of record; the table is a ReplacingMergeTree,
// so re-sending a snapshot with the same id collapses on merge.
type SnapshotMirror struct {
	conn *Conn
}

// NewSnapshotMirror creates a new SnapshotMirror.
func NewSnapshotMirror(conn *Conn) *SnapshotMirror {
	return &SnapshotMirror{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotMirror = (*SnapshotMirror)(nil)

// InsertBulk appends snapshots in one native batch.
// Snapshots must already carry their PostgreSQL id.
func (m *SnapshotMirror) InsertBulk(ctx context.Context, snaps []*domain.AccountSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	for _, s := range snaps {
		if s == nil || s.ID <= 0 {
			return storage.ErrInvalidInput
		}
	}

	batch, err := m.conn.PrepareBatch(ctx, `
		INSERT INTO account_snapshots (
			id, account_id, timestamp, balance, equity, margin,
			free_margin, margin_level, open_pnl, extra_data
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, s := range snaps {
		err = batch.Append(
			uint64(s.ID), s.AccountID, s.Timestamp.UTC(),
			s.Balance, s.Equity, s.Margin,
			s.FreeMargin, s.MarginLevel, s.OpenPnL, s.ExtraData,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves mirrored snapshots for an account within [start, end] (inclusive).
// FINAL folds rows that were mirrored more than once.
func (m *SnapshotMirror) GetByTimeRange(ctx context.Context, accountID int64, start, end time.Time) ([]*domain.AccountSnapshot, error) {
	query := `
		SELECT id, account_id, timestamp, balance, equity, margin,
		       free_margin, margin_level, open_pnl, extra_data
		FROM account_snapshots FINAL
		WHERE account_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := m.conn.Query(ctx, query, accountID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows driver.Rows) ([]*domain.AccountSnapshot, error) {
	var result []*domain.AccountSnapshot
	for rows.Next() {
		var (
			s  domain.AccountSnapshot
			id uint64
		)
		err := rows.Scan(
			&id, &s.AccountID, &s.Timestamp, &s.Balance, &s.Equity, &s.Margin,
			&s.FreeMargin, &s.MarginLevel, &s.OpenPnL, &s.ExtraData,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.ID = int64(id)
		s.Timestamp = s.Timestamp.UTC()
		result = append(result, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}
