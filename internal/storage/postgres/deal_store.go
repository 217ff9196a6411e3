package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// DealStore implements storage.DealStore using PostgreSQL.
type DealStore struct {
	pool *Pool
}

// NewDealStore creates a new DealStore.
func NewDealStore(pool *Pool) *DealStore {
	return &DealStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DealStore = (*DealStore)(nil)

// LastDealTime returns the newest deal timestamp for an account. Returns ErrNotFound if none.
func (s *DealStore) LastDealTime(ctx context.Context, accountID int64) (time.Time, error) {
	query := `
		SELECT MAX(close_time)
		FROM trades
		WHERE account_id = $1
	`

	var last *time.Time
	if err := s.pool.QueryRow(ctx, query, accountID).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("get last deal time: %w", err)
	}
	if last == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return last.UTC(), nil
}

// ExistingTickets returns the subset of tickets that are already stored.
func (s *DealStore) ExistingTickets(ctx context.Context, tickets []int64) (map[int64]bool, error) {
	existing := make(map[int64]bool)
	if len(tickets) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT ticket FROM trades WHERE ticket = ANY($1)`, tickets)
	if err != nil {
		return nil, fmt.Errorf("get existing tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticket int64
		if err := rows.Scan(&ticket); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		existing[ticket] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket rows: %w", err)
	}

	return existing, nil
}

// CommitBatch writes deals and strategy registrations in one transaction.
// Existing keys are skipped with ON CONFLICT DO NOTHING, never updated.
func (s *DealStore) CommitBatch(ctx context.Context, batch *storage.DealBatch) (int, int, error) {
	if batch.Empty() {
		return 0, 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	dealQuery := `
		INSERT INTO trades (
			ticket, account_id, magic_number, symbol, type, volume,
			open_price, close_price, open_time, close_time,
			profit, commission, swap, comment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8, $9, $10, $11, $12)
		ON CONFLICT (ticket) DO NOTHING
	`

	deals := 0
	for _, d := range batch.Deals {
		if d == nil {
			return 0, 0, storage.ErrInvalidInput
		}
		tag, err := tx.Exec(ctx, dealQuery,
			d.Ticket,
			d.AccountID,
			d.MagicNumber,
			d.Symbol,
			string(d.Type),
			d.Volume,
			d.Price,
			d.Timestamp,
			d.Profit,
			d.Commission,
			d.Swap,
			d.Comment,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert deal %d: %w", d.Ticket, err)
		}
		deals += int(tag.RowsAffected())
	}

	strategyQuery := `
		INSERT INTO eas (magic_number, account_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (magic_number, account_id) DO NOTHING
	`

	strategies := 0
	for _, r := range batch.Strategies {
		if r == nil {
			return 0, 0, storage.ErrInvalidInput
		}
		tag, err := tx.Exec(ctx, strategyQuery,
			r.MagicNumber,
			r.AccountID,
			r.Name,
			r.Description,
			r.CreatedAt,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert strategy %d/%d: %w", r.MagicNumber, r.AccountID, err)
		}
		strategies += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit tx: %w", err)
	}

	return deals, strategies, nil
}

// GetByAccount retrieves deals for an account within [start, end] (inclusive).
func (s *DealStore) GetByAccount(ctx context.Context, accountID int64, start, end time.Time) ([]*domain.HistoricalDeal, error) {
	query := `
		SELECT ticket, account_id, magic_number, symbol, type, volume,
		       open_price, close_time, profit, commission, swap, comment
		FROM trades
		WHERE account_id = $1 AND close_time >= $2 AND close_time <= $3
		ORDER BY close_time ASC, ticket ASC
	`

	rows, err := s.pool.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get deals by account: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// Count returns the total number of stored deals.
func (s *DealStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deals: %w", err)
	}
	return n, nil
}

// scanDeals scans multiple rows into a slice of HistoricalDeal.
func scanDeals(rows pgx.Rows) ([]*domain.HistoricalDeal, error) {
	var deals []*domain.HistoricalDeal

	for rows.Next() {
		var d domain.HistoricalDeal
		var typeStr string

		err := rows.Scan(
			&d.Ticket,
			&d.AccountID,
			&d.MagicNumber,
			&d.Symbol,
			&typeStr,
			&d.Volume,
			&d.Price,
			&d.Timestamp,
			&d.Profit,
			&d.Commission,
			&d.Swap,
			&d.Comment,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}

		d.Type = domain.DealType(typeStr)
		d.Timestamp = d.Timestamp.UTC()
		deals = append(deals, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}

	return deals, nil
}
