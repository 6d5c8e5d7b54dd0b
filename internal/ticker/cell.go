package ticker

import (
	"sync/atomic"

	"github.com/rickgao/stockexchange/internal/model"
)

// Cell holds the latest published snapshot of one stock. Loads never block
// and never observe a partially written snapshot.
type Cell struct {
	p atomic.Pointer[model.Snapshot]
}

// NewCell returns a cell holding the empty snapshot for symbol.
func NewCell(symbol string) *Cell {
	c := &Cell{}
	c.Store(model.EmptySnapshot(symbol))
	return c
}

// Load returns the latest snapshot.
func (c *Cell) Load() model.Snapshot {
	return *c.p.Load()
}

// Store publishes s.
func (c *Cell) Store(s model.Snapshot) {
	c.p.Store(&s)
}
