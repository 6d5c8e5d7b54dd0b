package simulation

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/exchange"
	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

type order struct {
	side     model.Side
	symbol   string
	quantity int
	price    money.Money
}

// mockMarket records orders and serves fixed snapshots.
type mockMarket struct {
	listing   []model.Stock
	snapshots map[string]model.Snapshot
	index     float64
	err       error

	mu     sync.Mutex
	orders []order
}

func (m *mockMarket) Listing() []model.Stock { return m.listing }

func (m *mockMarket) Watch(stock model.Stock) model.Snapshot {
	if s, ok := m.snapshots[stock.Symbol]; ok {
		return s
	}
	return model.EmptySnapshot(stock.Symbol)
}

func (m *mockMarket) Buy(stock model.Stock, qty int, price money.Money) error {
	return m.add(model.Buy, stock, qty, price)
}

func (m *mockMarket) Sell(stock model.Stock, qty int, price money.Money) error {
	return m.add(model.Sell, stock, qty, price)
}

func (m *mockMarket) AllShareIndex() float64 { return m.index }

func (m *mockMarket) add(side model.Side, stock model.Stock, qty int, price money.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order{side, stock.Symbol, qty, price})
	return m.err
}

var (
	tea = model.Stock{Symbol: "TEA", Type: model.Common, LastDividend: money.Zero, ParValue: money.FromInt(100)}
	pop = model.Stock{Symbol: "POP", Type: model.Common, LastDividend: money.FromInt(8), ParValue: money.FromInt(100)}
	gin = model.Stock{Symbol: "GIN", Type: model.Preferred, LastDividend: money.FromInt(8), FixedDividend: decimal.RequireFromString("0.02"), ParValue: money.FromInt(100)}
)

func TestTrader_RoundWithoutPrices(t *testing.T) {
	market := &mockMarket{listing: []model.Stock{tea, pop}}
	tr := NewTrader(TraderConfig{Traders: 10, MaxQuantity: 50, Seed: 42}, market, nil)

	tr.tradeRound()

	if got := len(market.orders); got != 10*2*2 {
		t.Fatalf("orders = %d, want 40", got)
	}
	for _, o := range market.orders {
		if o.quantity < 1 || o.quantity > 51 {
			t.Errorf("quantity %d out of [1, 51]", o.quantity)
		}
		if o.price.IsUndefined() || o.price.Float64() >= 100 {
			t.Errorf("fallback price %s out of [0, 100)", o.price)
		}
	}
	if got := tr.Submitted(); got != 40 {
		t.Errorf("Submitted() = %d, want 40", got)
	}
}

func TestTrader_MarginAroundPrice(t *testing.T) {
	market := &mockMarket{
		listing: []model.Stock{tea},
		snapshots: map[string]model.Snapshot{
			"TEA": {Symbol: "TEA", Price: money.FromInt(10), Quantity: 1, Volume: money.FromInt(10)},
		},
	}
	tr := NewTrader(TraderConfig{Traders: 20, MaxQuantity: 10, Seed: 7}, market, nil)

	tr.tradeRound()

	var buys, sells int
	for _, o := range market.orders {
		p := o.price.Float64()
		switch o.side {
		case model.Sell:
			sells++
			if p < 10 || p >= 20 {
				t.Errorf("sell price %v out of [10, 20)", p)
			}
		case model.Buy:
			buys++
			if p <= 5 || p > 10 {
				t.Errorf("buy price %v out of (5, 10]", p)
			}
		}
	}
	if buys != 20 || sells != 20 {
		t.Errorf("buys = %d, sells = %d, want 20 each", buys, sells)
	}
}

func TestTrader_ClosedMarketKeepsRunning(t *testing.T) {
	market := &mockMarket{listing: []model.Stock{tea}, err: exchange.ErrClosed}
	tr := NewTrader(TraderConfig{Interval: 5 * time.Millisecond, Traders: 2, Seed: 1}, market, nil)

	ctx := context.Background()
	tr.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := tr.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if tr.Submitted() != 0 {
		t.Errorf("Submitted() = %d, want 0", tr.Submitted())
	}
	if tr.rejected.Load() == 0 {
		t.Error("no rejected orders recorded")
	}
}

func TestTrader_AgainstExchange(t *testing.T) {
	ctx := context.Background()
	ex := exchange.New([]model.Stock{tea, pop}, exchange.Config{Window: time.Minute, TickInterval: time.Hour}).Open(ctx)
	defer ex.Close(ctx)

	tr := NewTrader(TraderConfig{Traders: 5, Seed: 3}, ex, nil)
	tr.tradeRound()

	// Trades reach the workers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for ex.Watch(tea).IsEmpty() || ex.Watch(pop).IsEmpty() {
		if time.Now().After(deadline) {
			t.Fatal("no trades reached the exchange")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReporter_Report(t *testing.T) {
	market := &mockMarket{
		listing: []model.Stock{tea, pop, gin},
		snapshots: map[string]model.Snapshot{
			"POP": {Symbol: "POP", Price: money.FromInt(16), Quantity: 1500, Volume: money.FromInt(2_500_000)},
			"GIN": {Symbol: "GIN", Price: money.FromInt(4), Quantity: 3, Volume: money.FromInt(12)},
		},
		index: 8,
	}

	var buf bytes.Buffer
	r := NewReporter(time.Hour, market, &buf, nil)
	if err := r.Report(); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"INDEX\t: 8.0000",
		"SYMBOL",
		"VOLUME[MLN]",
		"1,500",
		"2.5000",
		"0.5000", // POP yield 8/16 and GIN yield 2/4
		"2.0000", // POP P/E 16/8
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	var teaRow string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "TEA") {
			teaRow = line
		}
	}
	if !strings.Contains(teaRow, "X") {
		t.Errorf("TEA row should show undefined price: %q", teaRow)
	}
}

func TestReporter_NaNIndex(t *testing.T) {
	market := &mockMarket{listing: []model.Stock{tea}, index: math.NaN()}

	var buf bytes.Buffer
	r := NewReporter(0, market, &buf, nil)
	r.Report()

	if !strings.Contains(buf.String(), "INDEX\t: -") {
		t.Errorf("NaN index not rendered as '-':\n%s", buf.String())
	}
	if r.interval != DefaultReportInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultReportInterval)
	}
}

func TestReporter_StartStop(t *testing.T) {
	market := &mockMarket{listing: []model.Stock{tea}, index: math.NaN()}

	var buf syncBuffer
	r := NewReporter(5*time.Millisecond, market, &buf, nil)

	ctx := context.Background()
	r.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Welcome to the Global Beverage Corporation Exchange!") {
		t.Error("banner missing")
	}
	if !strings.Contains(out, "INDEX") {
		t.Error("no report written")
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
