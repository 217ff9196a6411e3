package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// DealStore is an in-memory implementation of storage.DealStore.
// Strategy registrations staged with a batch are written to the linked StrategyStore
// under both locks, so a batch is visible all at once or not at all.
type DealStore struct {
	mu         sync.RWMutex
	data       map[int64]*domain.HistoricalDeal
	strategies *StrategyStore
}

// NewDealStore creates a new in-memory deal store linked to a strategy store.
func NewDealStore(strategies *StrategyStore) *DealStore {
	if strategies == nil {
		strategies = NewStrategyStore()
	}
	return &DealStore{
		data:       make(map[int64]*domain.HistoricalDeal),
		strategies: strategies,
	}
}

// LastDealTime returns the newest deal timestamp for an account.
func (s *DealStore) LastDealTime(_ context.Context, accountID int64) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	found := false
	for _, d := range s.data {
		if d.AccountID != accountID {
			continue
		}
		if !found || d.Timestamp.After(last) {
			last = d.Timestamp
			found = true
		}
	}
	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return last, nil
}

// ExistingTickets returns the subset of tickets that are already stored.
func (s *DealStore) ExistingTickets(_ context.Context, tickets []int64) (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[int64]bool)
	for _, t := range tickets {
		if _, ok := s.data[t]; ok {
			existing[t] = true
		}
	}
	return existing, nil
}

// CommitBatch writes deals and strategy registrations atomically, skipping existing keys.
func (s *DealStore) CommitBatch(_ context.Context, batch *storage.DealBatch) (int, int, error) {
	if batch.Empty() {
		return 0, 0, nil
	}
	for _, d := range batch.Deals {
		if d == nil || !d.Type.IsValid() {
			return 0, 0, storage.ErrInvalidInput
		}
	}
	for _, r := range batch.Strategies {
		if r == nil || r.Name == "" {
			return 0, 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies.mu.Lock()
	defer s.strategies.mu.Unlock()

	deals := 0
	for _, d := range batch.Deals {
		if _, ok := s.data[d.Ticket]; ok {
			continue
		}
		copy := *d
		s.data[d.Ticket] = &copy
		deals++
	}

	strategies := 0
	for _, r := range batch.Strategies {
		if s.strategies.insertLocked(r) {
			strategies++
		}
	}

	return deals, strategies, nil
}

// GetByAccount retrieves deals for an account within [start, end] (inclusive).
func (s *DealStore) GetByAccount(_ context.Context, accountID int64, start, end time.Time) ([]*domain.HistoricalDeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoricalDeal
	for _, d := range s.data {
		if d.AccountID != accountID || d.Timestamp.Before(start) || d.Timestamp.After(end) {
			continue
		}
		copy := *d
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].Ticket < result[j].Ticket
	})

	return result, nil
}

// Count returns the total number of stored deals.
func (s *DealStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Verify interface compliance at compile time.
var _ storage.DealStore = (*DealStore)(nil)
