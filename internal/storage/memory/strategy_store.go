package memory

import (
	"context"
	"sort"
	"sync"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu   sync.RWMutex
	data map[domain.StrategyKey]*domain.StrategyRegistration
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		data: make(map[domain.StrategyKey]*domain.StrategyRegistration),
	}
}

// Exists checks whether a registration exists for (magic, account).
func (s *StrategyStore) Exists(_ context.Context, key domain.StrategyKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// GetByAccount retrieves all registrations for an account, ordered by magic number ASC.
func (s *StrategyStore) GetByAccount(_ context.Context, accountID int64) ([]*domain.StrategyRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyRegistration
	for key, r := range s.data {
		if key.AccountID != accountID {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MagicNumber < result[j].MagicNumber
	})

	return result, nil
}

// insertLocked stores a copy of r unless its key exists. Caller holds s.mu.
func (s *StrategyStore) insertLocked(r *domain.StrategyRegistration) bool {
	key := r.Key()
	if _, ok := s.data[key]; ok {
		return false
	}
	copy := *r
	s.data[key] = &copy
	return true
}

// Verify interface compliance at compile time.
var _ storage.StrategyStore = (*StrategyStore)(nil)
