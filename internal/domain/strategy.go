package domain

import (
	"fmt"
	"time"
)

// StrategyKey identifies a strategy on a specific account.
type StrategyKey struct {
	MagicNumber int64
	AccountID   int64
}

// StrategyRegistration is a registered expert advisor.
// Corresponds to the eas table, keyed by (magic_number, account_id).
type StrategyRegistration struct {
	MagicNumber int64
	AccountID   int64
	Name        string
	Description *string
	CreatedAt   time.Time
}

// Key returns the composite key of the registration.
func (s *StrategyRegistration) Key() StrategyKey {
	return StrategyKey{MagicNumber: s.MagicNumber, AccountID: s.AccountID}
}

// NewDiscoveredStrategy builds the registration created when deal sync first sees a magic number on an account.
func NewDiscoveredStrategy(magic, accountID int64, now time.Time) *StrategyRegistration {
	desc := fmt.Sprintf("Auto-discovered on %d", accountID)
	return &StrategyRegistration{
		MagicNumber: magic,
		AccountID:   accountID,
		Name:        fmt.Sprintf("EA_%d", magic),
		Description: &desc,
		CreatedAt:   now.UTC(),
	}
}
