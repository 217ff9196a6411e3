package domain

import "time"

// DealType is the side/kind of a recorded deal.
type DealType string

const (
	DealTypeBuy     DealType = "BUY"
	DealTypeSell    DealType = "SELL"
	DealTypeBalance DealType = "BALANCE"
	DealTypeUnknown DealType = "UNKNOWN"
)

// Terminal deal type codes.
const (
	DealCodeBuy     = 0
	DealCodeSell    = 1
	DealCodeBalance = 2
)

// DealTypeFromCode maps a terminal deal type code to a DealType.
// Codes without a mapping become DealTypeUnknown.
func DealTypeFromCode(code int) DealType {
	switch code {
	case DealCodeBuy:
		return DealTypeBuy
	case DealCodeSell:
		return DealTypeSell
	case DealCodeBalance:
		return DealTypeBalance
	default:
		return DealTypeUnknown
	}
}

// String returns the string representation of DealType.
func (t DealType) String() string {
	return string(t)
}

// IsValid checks if the deal type is one of the known values.
func (t DealType) IsValid() bool {
	switch t {
	case DealTypeBuy, DealTypeSell, DealTypeBalance, DealTypeUnknown:
		return true
	}
	return false
}

// Deal is a historical deal as reported by the terminal.
type Deal struct {
	Ticket     int64
	Magic      int64
	Symbol     string
	TypeCode   int
	Volume     float64
	Price      float64
	Time       time.Time // UTC
	Profit     float64
	Commission float64
	Swap       float64
	Comment    string
}

// HistoricalDeal is a stored deal.
// Corresponds to the trades table. Rows are write-once.
type HistoricalDeal struct {
	Ticket      int64 // PRIMARY KEY
	AccountID   int64
	MagicNumber int64
	Symbol      string
	Type        DealType
	Volume      float64
	Price       float64   // execution price, stored as open_price
	Timestamp   time.Time // stored as both open_time and close_time
	Profit      float64
	Commission  float64
	Swap        float64
	Comment     string
}

// NewHistoricalDeal builds the stored row for a terminal deal on an account.
func NewHistoricalDeal(accountID int64, d Deal) *HistoricalDeal {
	return &HistoricalDeal{
		Ticket:      d.Ticket,
		AccountID:   accountID,
		MagicNumber: d.Magic,
		Symbol:      d.Symbol,
		Type:        DealTypeFromCode(d.TypeCode),
		Volume:      d.Volume,
		Price:       d.Price,
		Timestamp:   d.Time.UTC(),
		Profit:      d.Profit,
		Commission:  d.Commission,
		Swap:        d.Swap,
		Comment:     d.Comment,
	}
}
