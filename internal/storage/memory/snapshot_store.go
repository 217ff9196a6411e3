package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"terminal-collector/internal/domain"
	"terminal-collector/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// It also satisfies storage.SnapshotMirror so tests can observe mirrored rows.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   []*domain.AccountSnapshot
	nextID int64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data:   make([]*domain.AccountSnapshot, 0),
		nextID: 1,
	}
}

// Insert appends a snapshot and sets its ID.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.AccountSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.ID = s.nextID
	s.nextID++

	copy := *snap
	s.data = append(s.data, &copy)
	return nil
}

// InsertBulk appends several snapshots, keeping the IDs they arrive with.
func (s *SnapshotStore) InsertBulk(_ context.Context, snaps []*domain.AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil {
			return storage.ErrInvalidInput
		}
	}
	for _, snap := range snaps {
		copy := *snap
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, accountID int64, start, end time.Time) ([]*domain.AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AccountSnapshot
	for _, snap := range s.data {
		if snap.AccountID != accountID || snap.Timestamp.Before(start) || snap.Timestamp.After(end) {
			continue
		}
		copy := *snap
		result = append(result, &copy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Len returns the number of stored snapshots.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var (
	_ storage.SnapshotStore  = (*SnapshotStore)(nil)
	_ storage.SnapshotMirror = (*SnapshotStore)(nil)
)
