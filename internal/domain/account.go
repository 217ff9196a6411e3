package domain

import "time"

// AccountInfo is the live account state reported by the terminal.
type AccountInfo struct {
	Login       int64
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
	Profit      float64 // floating PnL
}

// AccountSnapshot is a point-in-time account health reading.
// Corresponds to the account_snapshots table (append-only).
type AccountSnapshot struct {
	ID          int64 // auto-increment, zero until stored
	AccountID   int64
	Timestamp   time.Time
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
	OpenPnL     float64
	ExtraData   *string // JSON text (nullable)
}

// NewAccountSnapshot builds a snapshot row from account info.
func NewAccountSnapshot(accountID int64, info AccountInfo, at time.Time) *AccountSnapshot {
	return &AccountSnapshot{
		AccountID:   accountID,
		Timestamp:   at.UTC(),
		Balance:     info.Balance,
		Equity:      info.Equity,
		Margin:      info.Margin,
		FreeMargin:  info.FreeMargin,
		MarginLevel: info.MarginLevel,
		OpenPnL:     info.Profit,
	}
}
