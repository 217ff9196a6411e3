package postgres

import (
	"context"
	"fmt"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// ReplaceForAccount deletes the account's open positions and inserts the new set in one transaction.
// Readers see either the previous set or the new one. Rows of other accounts are never
// touched; a ticket owned by another account returns storage.ErrDuplicateKey.
func (s *PositionStore) ReplaceForAccount(ctx context.Context, accountID int64, positions []*domain.OpenPosition) error {
	seen := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if p == nil || p.AccountID != accountID {
			return storage.ErrInvalidInput
		}
		if seen[p.Ticket] {
			return storage.ErrDuplicateKey
		}
		seen[p.Ticket] = true
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM open_positions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete open positions: %w", err)
	}

	// ticket is the primary key on its own: a ticket still held by another
	// account fails the insert and the whole replace rolls back.
	query := `
		INSERT INTO open_positions (
			ticket, account_id, symbol, magic_number, type, volume,
			open_price, current_price, sl, tp, profit, swap, comment, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, p := range positions {
		_, err := tx.Exec(ctx, query,
			p.Ticket,
			p.AccountID,
			p.Symbol,
			p.MagicNumber,
			string(p.Type),
			p.Volume,
			p.OpenPrice,
			p.CurrentPrice,
			p.SL,
			p.TP,
			p.Profit,
			p.Swap,
			p.Comment,
			p.UpdatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert open position %d: %w", p.Ticket, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAccount retrieves open positions for an account, ordered by ticket ASC.
func (s *PositionStore) GetByAccount(ctx context.Context, accountID int64) ([]*domain.OpenPosition, error) {
	query := `
		SELECT ticket, account_id, symbol, magic_number, type, volume,
		       open_price, current_price, sl, tp, profit, swap, comment, updated_at
		FROM open_positions
		WHERE account_id = $1
		ORDER BY ticket ASC
	`

	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.OpenPosition
	for rows.Next() {
		var p domain.OpenPosition
		var typeStr string
		err := rows.Scan(
			&p.Ticket,
			&p.AccountID,
			&p.Symbol,
			&p.MagicNumber,
			&typeStr,
			&p.Volume,
			&p.OpenPrice,
			&p.CurrentPrice,
			&p.SL,
			&p.TP,
			&p.Profit,
			&p.Swap,
			&p.Comment,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan open position row: %w", err)
		}
		p.Type = domain.DealType(typeStr)
		result = append(result, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open position rows: %w", err)
	}

	return result, nil
}
