package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/money"
)

// -----------------------------------------------------------------------------
// Listing Types
// -----------------------------------------------------------------------------

// StockType distinguishes common from preferred stock.
type StockType int

const (
	Common StockType = iota
	Preferred
)

func (t StockType) String() string {
	switch t {
	case Common:
		return "Common"
	case Preferred:
		return "Preferred"
	default:
		return "Unknown"
	}
}

// Stock is a listed security. Listings are static for the life of an exchange.
type Stock struct {
	Symbol        string          // Unique within a listing (e.g., "TEA")
	Type          StockType       // Common or Preferred
	LastDividend  money.Money     // Last dividend paid
	FixedDividend decimal.Decimal // Fraction of par (e.g., 0.02), preferred only
	ParValue      money.Money     // Par value
}

// DividendYield returns the dividend yield at the given price, NaN when the
// price is undefined or zero.
func (s Stock) DividendYield(price money.Money) float64 {
	if s.Type == Preferred {
		return s.ParValue.Multiply(s.FixedDividend).Ratio(price)
	}
	return s.LastDividend.Ratio(price)
}

// PERatio returns price / last dividend, NaN when there is no dividend.
func (s Stock) PERatio(price money.Money) float64 {
	return price.Ratio(s.LastDividend)
}

func (s Stock) String() string {
	return s.Type.String() + "(" + s.Symbol + "," + s.ParValue.String() + "," + s.LastDividend.String() + ")"
}

// -----------------------------------------------------------------------------
// Trading Types
// -----------------------------------------------------------------------------

// Side is the direction of a trade.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Trade is an accepted trade. Both sides contribute identically to the
// ticker (no netting).
type Trade struct {
	ID        uuid.UUID   // Assigned by the exchange
	Timestamp time.Time   // Exchange clock at acceptance
	Side      Side        // BUY or SELL
	Symbol    string      // Stock symbol
	Quantity  int         // Shares, always > 0
	Price     money.Money // Always defined
}

// Notional returns price x quantity.
func (t Trade) Notional() money.Money {
	return t.Price.MultiplyInt(t.Quantity)
}

// -----------------------------------------------------------------------------
// Ticker Types
// -----------------------------------------------------------------------------

// Snapshot is the published ticker state of one stock over the active window.
type Snapshot struct {
	Symbol   string      `json:"symbol"`
	Price    money.Money `json:"price"`    // VWAP, Undefined when nothing traded
	Quantity int         `json:"quantity"` // Shares traded in the window
	Volume   money.Money `json:"volume"`   // Sum of price x quantity in the window
}

// EmptySnapshot is the ticker state of a stock with no trades in the window.
func EmptySnapshot(symbol string) Snapshot {
	return Snapshot{
		Symbol: symbol,
		Price:  money.Undefined,
		Volume: money.Zero,
	}
}

// IsEmpty reports whether s carries no trades.
func (s Snapshot) IsEmpty() bool {
	return s.Quantity == 0
}
