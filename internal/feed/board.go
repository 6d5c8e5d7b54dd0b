package feed

import (
	"math"
	"time"

	"github.com/rickgao/stockexchange/internal/model"
)

// Market is the exchange state served by the feed.
type Market interface {
	IsOpen() bool
	Listing() []model.Stock
	Watch(stock model.Stock) model.Snapshot
	AllShareIndex() float64
}

// Ticker is one stock on the board. Ratios are null when undefined.
type Ticker struct {
	model.Snapshot
	Type          string   `json:"type"`
	DividendYield *float64 `json:"dividend_yield"`
	PERatio       *float64 `json:"pe_ratio"`
}

// Board is a point-in-time view of every listed stock.
type Board struct {
	Timestamp time.Time `json:"timestamp"`
	Open      bool      `json:"open"`
	Index     *float64  `json:"index"`
	Tickers   []Ticker  `json:"tickers"`
}

// BuildBoard reads the current board from m.
func BuildBoard(m Market, now time.Time) Board {
	listing := m.Listing()
	board := Board{
		Timestamp: now.UTC(),
		Open:      m.IsOpen(),
		Index:     finite(m.AllShareIndex()),
		Tickers:   make([]Ticker, 0, len(listing)),
	}
	for _, stock := range listing {
		s := m.Watch(stock)
		board.Tickers = append(board.Tickers, Ticker{
			Snapshot:      s,
			Type:          stock.Type.String(),
			DividendYield: finite(stock.DividendYield(s.Price)),
			PERatio:       finite(stock.PERatio(s.Price)),
		})
	}
	return board
}

// finite returns nil for NaN and infinities, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
