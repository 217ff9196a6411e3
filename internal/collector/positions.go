package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/observability"
	"terminal-collector/internal/storage"
	"terminal-collector/internal/terminal"
)

// PositionReplicator mirrors the terminal's open positions for one account.
// Only a successful fetch (including an empty one) replaces stored rows.
type PositionReplicator struct {
	positions storage.PositionStore
	log       zerolog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewPositionReplicator creates a new PositionReplicator.
func NewPositionReplicator(positions storage.PositionStore, deps Deps) *PositionReplicator {
	deps = deps.withDefaults()
	return &PositionReplicator{
		positions: positions,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
}

// Replace fetches open positions and swaps the account's stored set for them.
// Returns the number of rows written.
func (p *PositionReplicator) Replace(ctx context.Context, session terminal.Session, accountID int64) (int, error) {
	result := session.Positions(ctx)
	switch result.Status {
	case terminal.StatusUnavailable:
		p.log.Debug().Int64("account_id", accountID).Msg("positions unavailable, keeping stored rows")
		return 0, nil
	case terminal.StatusFailed:
		return 0, fmt.Errorf("%w: positions: %w", ErrFetchFailed, result.Err)
	}

	now := p.now()
	rows := make([]*domain.OpenPosition, 0, len(result.Positions))
	for _, pos := range result.Positions {
		rows = append(rows, domain.NewOpenPosition(accountID, pos, now))
	}

	if err := p.positions.ReplaceForAccount(ctx, accountID, rows); err != nil {
		return 0, fmt.Errorf("%w: positions: %w", ErrCommitFailed, err)
	}
	p.metrics.PositionsReplaced.Add(float64(len(rows)))

	if len(rows) > 0 {
		p.log.Info().Int64("account_id", accountID).Int("count", len(rows)).Msg("synced open positions")
	}
	return len(rows), nil
}
