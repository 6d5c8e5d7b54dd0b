package ticker

import (
	"sort"
	"time"

	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

// Engine is the sliding-window ledger of one stock. It is not safe for
// concurrent use; a Worker serializes access to it.
type Engine struct {
	symbol string
	cell   *Cell

	// ledger is sorted by Timestamp, earliest first.
	ledger []model.Trade

	// Running aggregates over ledger.
	quantity int
	notional money.Money
	volume   money.Money
}

// NewEngine creates an engine publishing into cell. The empty snapshot is
// published immediately.
func NewEngine(symbol string, cell *Cell) *Engine {
	e := &Engine{
		symbol:   symbol,
		cell:     cell,
		notional: money.Zero,
		volume:   money.Zero,
	}
	e.publish()
	return e
}

// SubmitTrade adds t to the window and publishes a fresh snapshot. The caller
// guarantees t.Quantity > 0 and a defined price.
func (e *Engine) SubmitTrade(t model.Trade) {
	// Trades arrive in near-timestamp order, so the search usually lands at the end.
	i := sort.Search(len(e.ledger), func(i int) bool {
		return e.ledger[i].Timestamp.After(t.Timestamp)
	})
	e.ledger = append(e.ledger, model.Trade{})
	copy(e.ledger[i+1:], e.ledger[i:])
	e.ledger[i] = t

	value := t.Notional()
	e.quantity += t.Quantity
	e.notional = e.notional.Add(value)
	e.volume = e.volume.Add(value)

	e.publish()
}

// EvictBefore drops every trade strictly earlier than cutoff and publishes a
// snapshot, even when nothing was dropped. A trade at exactly cutoff stays.
func (e *Engine) EvictBefore(cutoff time.Time) int {
	n := 0
	for n < len(e.ledger) && e.ledger[n].Timestamp.Before(cutoff) {
		t := e.ledger[n]
		value := t.Notional()
		e.quantity -= t.Quantity
		e.notional = e.notional.Sub(value)
		e.volume = e.volume.Sub(value)
		e.ledger[n] = model.Trade{}
		n++
	}
	if n > 0 {
		e.ledger = e.ledger[n:]
	}
	if len(e.ledger) == 0 {
		e.ledger = nil
	}

	e.publish()
	return n
}

// Snapshot computes the ticker state from the running aggregates.
func (e *Engine) Snapshot() model.Snapshot {
	if e.quantity <= 0 {
		return model.EmptySnapshot(e.symbol)
	}
	return model.Snapshot{
		Symbol:   e.symbol,
		Price:    e.notional.DivideInt(e.quantity),
		Quantity: e.quantity,
		Volume:   e.volume,
	}
}

// Len returns the number of trades in the window.
func (e *Engine) Len() int {
	return len(e.ledger)
}

func (e *Engine) publish() {
	e.cell.Store(e.Snapshot())
}
