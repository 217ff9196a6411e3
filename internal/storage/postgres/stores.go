package postgres

import "terminal-collector/internal/storage"

// NewStores wires every PostgreSQL store onto one pool.
func NewStores(pool *Pool) storage.Stores {
	return storage.Stores{
		Deals:      NewDealStore(pool),
		Strategies: NewStrategyStore(pool),
		Snapshots:  NewSnapshotStore(pool),
		Positions:  NewPositionStore(pool),
		Config:     NewConfigStore(pool),
	}
}
