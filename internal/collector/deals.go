package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/terminal"
)

// DefaultLookback is how far back the first sync of an account reaches.
const DefaultLookback = 3650 * 24 * time.Hour

// DealSyncer copies new historical deals into the store and auto-registers
// strategies the first time a magic number is seen on an account.
type DealSyncer struct {
	deals      storage.DealStore
	strategies storage.StrategyStore
	log        zerolog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewDealSyncer creates a new DealSyncer.
func NewDealSyncer(deals storage.DealStore, strategies storage.StrategyStore, deps Deps) *DealSyncer {
	deps = deps.withDefaults()
	return &DealSyncer{
		deals:      deals,
		strategies: strategies,
		log:        deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Now,
	}
}

// Sync fetches deals since the newest stored one and commits the unseen ones
// together with any new strategy registrations in one batch.
// Returns the number of deals inserted. Re-running over the same window inserts nothing.
func (s *DealSyncer) Sync(ctx context.Context, session terminal.Session, accountID int64) (int, error) {
	now := s.now().UTC()

	from, err := s.deals.LastDealTime(ctx, accountID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		from = now.Add(-DefaultLookback)
		s.log.Info().Int64("account_id", accountID).Msg("no stored deals, fetching full history")
	case err != nil:
		return 0, fmt.Errorf("last deal time: %w", err)
	}

	result := session.Deals(ctx, from, now)
	switch result.Status {
	case terminal.StatusUnavailable, terminal.StatusEmpty:
		s.log.Debug().Int64("account_id", accountID).Stringer("status", result.Status).Msg("no deals to sync")
		return 0, nil
	case terminal.StatusFailed:
		return 0, fmt.Errorf("%w: deals: %w", ErrFetchFailed, result.Err)
	}

	batch, err := s.stage(ctx, accountID, result.Deals)
	if err != nil {
		return 0, err
	}
	if batch.Empty() {
		return 0, nil
	}

	deals, strategies, err := s.deals.CommitBatch(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("%w: deal batch: %w", ErrCommitFailed, err)
	}

	s.metrics.DealsInserted.Add(float64(deals))
	s.metrics.StrategiesRegistered.Add(float64(strategies))
	for _, r := range batch.Strategies {
		s.log.Info().Int64("account_id", accountID).Int64("magic", r.MagicNumber).Msg("discovered new strategy")
	}
	s.log.Info().
		Int64("account_id", accountID).
		Int("fetched", len(result.Deals)).
		Int("inserted", deals).
		Int("registered", strategies).
		Msg("synced deals")

	return deals, nil
}

// stage builds the batch of unseen deals and the registrations they need.
func (s *DealSyncer) stage(ctx context.Context, accountID int64, fetched []domain.Deal) (*storage.DealBatch, error) {
	tickets := make([]int64, 0, len(fetched))
	for _, d := range fetched {
		tickets = append(tickets, d.Ticket)
	}
	existing, err := s.deals.ExistingTickets(ctx, tickets)
	if err != nil {
		return nil, fmt.Errorf("existing tickets: %w", err)
	}

	now := s.now().UTC()
	batch := &storage.DealBatch{}
	staged := make(map[int64]bool)
	checked := make(map[domain.StrategyKey]bool)

	for _, d := range fetched {
		if existing[d.Ticket] || staged[d.Ticket] {
			continue
		}
		staged[d.Ticket] = true
		batch.Deals = append(batch.Deals, domain.NewHistoricalDeal(accountID, d))

		key := domain.StrategyKey{MagicNumber: d.Magic, AccountID: accountID}
		if checked[key] {
			continue
		}
		checked[key] = true

		ok, err := s.strategies.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("strategy exists %d/%d: %w", key.MagicNumber, key.AccountID, err)
		}
		if !ok {
			batch.Strategies = append(batch.Strategies, domain.NewDiscoveredStrategy(d.Magic, accountID, now))
		}
	}

	return batch, nil
}
