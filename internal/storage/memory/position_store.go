package memory

import (
	"context"
	"sort"
	"sync"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.OpenPosition // keyed by ticket
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[int64]*domain.OpenPosition),
	}
}

// ReplaceForAccount deletes the account's open positions and inserts the given set atomically.
func (s *PositionStore) ReplaceForAccount(_ context.Context, accountID int64, positions []*domain.OpenPosition) error {
	batch := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if p == nil || p.AccountID != accountID {
			return storage.ErrInvalidInput
		}
		if batch[p.Ticket] {
			return storage.ErrDuplicateKey
		}
		batch[p.Ticket] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range positions {
		if held, ok := s.data[p.Ticket]; ok && held.AccountID != accountID {
			return storage.ErrDuplicateKey
		}
	}

	for ticket, p := range s.data {
		if p.AccountID == accountID {
			delete(s.data, ticket)
		}
	}
	for _, p := range positions {
		copy := *p
		s.data[p.Ticket] = &copy
	}

	return nil
}

// GetByAccount retrieves open positions for an account, ordered by ticket ASC.
func (s *PositionStore) GetByAccount(_ context.Context, accountID int64) ([]*domain.OpenPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OpenPosition
	for _, p := range s.data {
		if p.AccountID != accountID {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Ticket < result[j].Ticket
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PositionStore = (*PositionStore)(nil)
