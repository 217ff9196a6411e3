package memory

import "terminal-collector/internal/storage"

// NewStores creates a full set of linked in-memory stores.
func NewStores() storage.Stores {
	strategies := NewStrategyStore()
	return storage.Stores{
		Deals:      NewDealStore(strategies),
		Strategies: strategies,
		Snapshots:  NewSnapshotStore(),
		Positions:  NewPositionStore(),
		Config:     NewConfigStore(),
	}
}
