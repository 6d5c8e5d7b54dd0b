package ticker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func trade(at time.Time, side model.Side, qty int, price int64) model.Trade {
	return model.Trade{
		ID:        uuid.New(),
		Timestamp: at,
		Side:      side,
		Symbol:    "TEA",
		Quantity:  qty,
		Price:     money.FromInt(price),
	}
}

func newTestEngine() (*Engine, *Cell) {
	cell := NewCell("TEA")
	return NewEngine("TEA", cell), cell
}

func TestEngine_StartsEmpty(t *testing.T) {
	e, cell := newTestEngine()

	s := cell.Load()
	if !s.Price.IsUndefined() || s.Quantity != 0 || !s.Volume.Equal(money.Zero) {
		t.Errorf("initial snapshot = %+v, want empty", s)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestEngine_VWAP(t *testing.T) {
	e, cell := newTestEngine()

	e.SubmitTrade(trade(t0, model.Buy, 100, 10))
	e.SubmitTrade(trade(t0.Add(time.Second), model.Sell, 50, 20))

	s := cell.Load()
	wantPrice := money.New(decimal.RequireFromString("13.3333"))
	if !s.Price.Equal(wantPrice) {
		t.Errorf("Price = %s, want %s", s.Price, wantPrice)
	}
	if s.Quantity != 150 {
		t.Errorf("Quantity = %d, want 150", s.Quantity)
	}
	if !s.Volume.Equal(money.FromInt(2000)) {
		t.Errorf("Volume = %s, want 2000", s.Volume)
	}
}

func TestEngine_VWAPManyTrades(t *testing.T) {
	e, cell := newTestEngine()

	pairs := []struct {
		qty   int
		price int64
	}{
		{10, 5}, {20, 7}, {30, 11}, {40, 13},
	}

	var sumPQ, sumQ int64
	for i, p := range pairs {
		e.SubmitTrade(trade(t0.Add(time.Duration(i)*time.Second), model.Buy, p.qty, p.price))
		sumPQ += int64(p.qty) * p.price
		sumQ += int64(p.qty)
	}

	s := cell.Load()
	want := money.FromInt(sumPQ).DivideInt(int(sumQ))
	if !s.Price.Equal(want) {
		t.Errorf("Price = %s, want %s", s.Price, want)
	}
	if !s.Volume.Equal(money.FromInt(sumPQ)) {
		t.Errorf("Volume = %s, want %d", s.Volume, sumPQ)
	}
	if s.Quantity != int(sumQ) {
		t.Errorf("Quantity = %d, want %d", s.Quantity, sumQ)
	}
}

func TestEngine_OutOfOrderInsert(t *testing.T) {
	e, _ := newTestEngine()

	e.SubmitTrade(trade(t0.Add(2*time.Second), model.Buy, 1, 1))
	e.SubmitTrade(trade(t0, model.Buy, 2, 1))
	e.SubmitTrade(trade(t0.Add(time.Second), model.Buy, 3, 1))
	e.SubmitTrade(trade(t0.Add(time.Second), model.Buy, 4, 1))

	wantQty := []int{2, 3, 4, 1}
	for i, tr := range e.ledger {
		if tr.Quantity != wantQty[i] {
			t.Errorf("ledger[%d].Quantity = %d, want %d", i, tr.Quantity, wantQty[i])
		}
	}
}

func TestEngine_EvictionBoundary(t *testing.T) {
	e, cell := newTestEngine()

	cutoff := t0.Add(time.Minute)
	e.SubmitTrade(trade(cutoff.Add(-time.Nanosecond), model.Buy, 10, 4))
	e.SubmitTrade(trade(cutoff, model.Sell, 20, 8))

	n := e.EvictBefore(cutoff)
	if n != 1 {
		t.Fatalf("EvictBefore() = %d, want 1", n)
	}

	s := cell.Load()
	if s.Quantity != 20 {
		t.Errorf("Quantity = %d, want 20 (trade at cutoff retained)", s.Quantity)
	}
	if !s.Price.Equal(money.FromInt(8)) {
		t.Errorf("Price = %s, want 8", s.Price)
	}
	if !s.Volume.Equal(money.FromInt(160)) {
		t.Errorf("Volume = %s, want 160", s.Volume)
	}
}

func TestEngine_EvictAllPublishesEmpty(t *testing.T) {
	e, cell := newTestEngine()

	e.SubmitTrade(trade(t0, model.Buy, 100, 10))
	e.SubmitTrade(trade(t0.Add(time.Second), model.Sell, 50, 20))

	if n := e.EvictBefore(t0.Add(time.Hour)); n != 2 {
		t.Fatalf("EvictBefore() = %d, want 2", n)
	}

	s := cell.Load()
	want := model.EmptySnapshot("TEA")
	if !s.Price.IsUndefined() || s.Quantity != want.Quantity || !s.Volume.Equal(want.Volume) {
		t.Errorf("snapshot = %+v, want empty", s)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestEngine_EvictNothingStillPublishes(t *testing.T) {
	e, cell := newTestEngine()
	e.SubmitTrade(trade(t0, model.Buy, 5, 3))

	// Overwrite the cell to observe the republish.
	cell.Store(model.EmptySnapshot("TEA"))

	if n := e.EvictBefore(t0); n != 0 {
		t.Fatalf("EvictBefore() = %d, want 0", n)
	}
	if s := cell.Load(); s.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5 after republish", s.Quantity)
	}
}

func TestEngine_AggregatesMatchLedger(t *testing.T) {
	e, _ := newTestEngine()

	for i := 0; i < 50; i++ {
		e.SubmitTrade(trade(t0.Add(time.Duration(i)*time.Second), model.Side(i%2), i+1, int64(i%7+1)))
	}
	e.EvictBefore(t0.Add(20 * time.Second))

	qty := 0
	volume := money.Zero
	for _, tr := range e.ledger {
		qty += tr.Quantity
		volume = volume.Add(tr.Notional())
	}

	if e.quantity != qty {
		t.Errorf("quantity = %d, want %d", e.quantity, qty)
	}
	if !e.notional.Equal(volume) {
		t.Errorf("notional = %s, want %s", e.notional, volume)
	}
	if !e.volume.Equal(volume) {
		t.Errorf("volume = %s, want %s", e.volume, volume)
	}
	if e.Len() != 30 {
		t.Errorf("Len() = %d, want 30", e.Len())
	}
}
