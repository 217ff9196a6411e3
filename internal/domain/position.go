package domain

import "time"

// Terminal position type codes.
const (
	PositionCodeBuy  = 0
	PositionCodeSell = 1
)

// PositionTypeFromCode maps a terminal position type code.
// The terminal only reports buy and sell positions, anything but buy is a sell.
func PositionTypeFromCode(code int) DealType {
	if code == PositionCodeBuy {
		return DealTypeBuy
	}
	return DealTypeSell
}

// Position is an open position as reported by the terminal.
type Position struct {
	Ticket       int64
	Magic        int64
	Symbol       string
	TypeCode     int
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	SL           float64
	TP           float64
	Profit       float64
	Swap         float64
	Comment      string
}

// OpenPosition is a stored open position.
// Corresponds to the open_positions table. The set for an account is replaced every cycle.
type OpenPosition struct {
	Ticket       int64 // PRIMARY KEY, always filtered by AccountID on mutation
	AccountID    int64
	Symbol       string
	MagicNumber  int64
	Type         DealType
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	SL           float64
	TP           float64
	Profit       float64
	Swap         float64
	Comment      string
	UpdatedAt    time.Time
}

// NewOpenPosition builds the stored row for a terminal position on an account.
func NewOpenPosition(accountID int64, p Position, now time.Time) *OpenPosition {
	return &OpenPosition{
		Ticket:       p.Ticket,
		AccountID:    accountID,
		Symbol:       p.Symbol,
		MagicNumber:  p.Magic,
		Type:         PositionTypeFromCode(p.TypeCode),
		Volume:       p.Volume,
		OpenPrice:    p.OpenPrice,
		CurrentPrice: p.CurrentPrice,
		SL:           p.SL,
		TP:           p.TP,
		Profit:       p.Profit,
		Swap:         p.Swap,
		Comment:      p.Comment,
		UpdatedAt:    now.UTC(),
	}
}
