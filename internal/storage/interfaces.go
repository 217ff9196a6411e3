package storage

import (
	"context"
	"time"

	"terminal-collector/internal/domain"
)

// DealBatch is the set of rows staged by one deal sync pass.
// It is committed in a single transaction.
type DealBatch struct {
	Deals      []*domain.HistoricalDeal
	Strategies []*domain.StrategyRegistration
}

// Empty reports whether the batch has nothing to write.
func (b *DealBatch) Empty() bool {
	return b == nil || (len(b.Deals) == 0 && len(b.Strategies) == 0)
}

// DealStore provides access to trades storage.
type DealStore interface {
	// LastDealTime returns the newest deal timestamp for an account.
	// Returns ErrNotFound if the account has no deals.
	LastDealTime(ctx context.Context, accountID int64) (time.Time, error)

	// ExistingTickets returns the subset of tickets that are already stored.
	ExistingTickets(ctx context.Context, tickets []int64) (map[int64]bool, error)

	// CommitBatch writes deals and strategy registrations atomically.
	// Rows whose key already exists are skipped, never updated.
	// Returns the number of deals and strategies actually inserted.
	CommitBatch(ctx context.Context, batch *DealBatch) (deals int, strategies int, err error)

	// GetByAccount retrieves deals for an account within [start, end] (inclusive), ordered by timestamp ASC, ticket ASC.
	GetByAccount(ctx context.Context, accountID int64, start, end time.Time) ([]*domain.HistoricalDeal, error)

	// Count returns the total number of stored deals.
	Count(ctx context.Context) (int, error)
}

// StrategyStore provides access to eas storage.
type StrategyStore interface {
	// Exists checks whether a registration exists for (magic, account).
	Exists(ctx context.Context, key domain.StrategyKey) (bool, error)

	// GetByAccount retrieves all registrations for an account, ordered by magic number ASC.
	GetByAccount(ctx context.Context, accountID int64) ([]*domain.StrategyRegistration, error)
}

// SnapshotStore provides access to account_snapshots storage.
type SnapshotStore interface {
	// Insert appends a snapshot and sets its ID.
	Insert(ctx context.Context, s *domain.AccountSnapshot) error

	// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, accountID int64, start, end time.Time) ([]*domain.AccountSnapshot, error)
}

// SnapshotMirror receives a copy of every recorded snapshot.
// Mirrors are secondary sinks: the primary SnapshotStore stays the source of truth.
type SnapshotMirror interface {
	InsertBulk(ctx context.Context, snapshots []*domain.AccountSnapshot) error
}

// PositionStore provides access to open_positions storage.
type PositionStore interface {
	// ReplaceForAccount deletes every open position of the account and inserts
	// the given set in one transaction. Other accounts are never touched.
	ReplaceForAccount(ctx context.Context, accountID int64, positions []*domain.OpenPosition) error

	// GetByAccount retrieves open positions for an account, ordered by ticket ASC.
	GetByAccount(ctx context.Context, accountID int64) ([]*domain.OpenPosition, error)
}

// ConfigStore provides access to app_config storage.
type ConfigStore interface {
	// Get retrieves a config entry. Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (*domain.ConfigEntry, error)

	// Set creates or updates a config entry.
	Set(ctx context.Context, key, value string) error
}

// Stores bundles every store the collector needs.
type Stores struct {
	Deals      DealStore
	Strategies StrategyStore
	Snapshots  SnapshotStore
	Positions  PositionStore
	Config     ConfigStore
}
