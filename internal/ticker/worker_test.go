package ticker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

func startWorker(t *testing.T, m *metrics.Metrics) (*Worker, *Cell) {
	t.Helper()
	cell := NewCell("TEA")
	w := NewWorker("TEA", cell, 4, m, slog.Default())
	w.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.Stop(ctx)
	})
	return w, cell
}

func waitEvict(t *testing.T, w *Worker, cutoff time.Time) {
	t.Helper()
	done := make(chan struct{})
	if !w.Evict(cutoff, func() { close(done) }) {
		t.Fatal("Evict() returned false")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction tick not acknowledged")
	}
}

func TestWorker_AppliesTradesInOrder(t *testing.T) {
	w, cell := startWorker(t, metrics.New())

	for i := 0; i < 100; i++ {
		if !w.Submit(trade(t0.Add(time.Duration(i)*time.Millisecond), model.Buy, 1, int64(i+1))) {
			t.Fatalf("Submit(%d) returned false", i)
		}
	}

	// The tick is queued behind every trade above.
	waitEvict(t, w, t0)

	s := cell.Load()
	if s.Quantity != 100 {
		t.Errorf("Quantity = %d, want 100", s.Quantity)
	}
	// Sum of 1..100 = 5050, VWAP over unit quantities = 50.5.
	if !s.Volume.Equal(money.FromInt(5050)) {
		t.Errorf("Volume = %s, want 5050", s.Volume)
	}
	if s.Price.Float64() != 50.5 {
		t.Errorf("Price = %s, want 50.5", s.Price)
	}
	if got := w.Stats().Trades; got != 100 {
		t.Errorf("Stats().Trades = %d, want 100", got)
	}
}

func TestWorker_EvictionTick(t *testing.T) {
	w, cell := startWorker(t, nil)

	w.Submit(trade(t0, model.Buy, 100, 10))
	w.Submit(trade(t0.Add(time.Second), model.Sell, 50, 20))
	waitEvict(t, w, t0.Add(time.Second))

	if s := cell.Load(); s.Quantity != 50 {
		t.Errorf("Quantity = %d, want 50", s.Quantity)
	}

	waitEvict(t, w, t0.Add(time.Hour))
	if s := cell.Load(); !s.IsEmpty() || !s.Price.IsUndefined() {
		t.Errorf("snapshot = %+v, want empty", s)
	}
}

func TestWorker_StopDrainsDelivered(t *testing.T) {
	cell := NewCell("TEA")
	w := NewWorker("TEA", cell, 4, nil, nil)

	// Deliver before Start so everything is queued when Stop runs.
	for i := 0; i < 20; i++ {
		w.Submit(trade(t0, model.Buy, 1, 2))
	}
	w.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if s := cell.Load(); s.Quantity != 20 {
		t.Errorf("Quantity = %d, want 20", s.Quantity)
	}
	if w.Submit(trade(t0, model.Buy, 1, 2)) {
		t.Error("Submit() after Stop returned true")
	}
	if w.Evict(t0, nil) {
		t.Error("Evict() after Stop returned true")
	}
}

func TestWorker_ContextCancelStops(t *testing.T) {
	cell := NewCell("TEA")
	w := NewWorker("TEA", cell, 4, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for w.Submit(trade(t0, model.Buy, 1, 1)) {
		if time.Now().After(deadline) {
			t.Fatal("worker still accepting trades after context cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorker_ConcurrentSubmitters(t *testing.T) {
	w, cell := startWorker(t, nil)

	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				w.Submit(trade(t0, model.Buy, 2, 3))
			}
		}()
	}
	wg.Wait()
	waitEvict(t, w, t0)

	s := cell.Load()
	if s.Quantity != 800 {
		t.Errorf("Quantity = %d, want 800", s.Quantity)
	}
	if !s.Price.Equal(money.FromInt(3)) {
		t.Errorf("Price = %s, want 3", s.Price)
	}
}
