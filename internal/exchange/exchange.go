package exchange

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
	"github.com/rickgao/stockexchange/internal/ticker"
)

// Exchange coordinates the ticker workers of a static listing.
type Exchange struct {
	cfg     Config
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	listing  []model.Stock
	bySymbol map[string]model.Stock

	// cells outlive the workers so Watch keeps working after Close.
	cells map[string]*ticker.Cell

	workers atomic.Pointer[map[string]*ticker.Worker]
	open    atomic.Bool
	index   atomic.Uint64
	ticks   atomic.Int64

	mu     sync.Mutex // serializes Open and Close
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a closed exchange over listing. Stocks repeating an earlier
// symbol are ignored.
func New(listing []model.Stock, cfg Config, opts ...Option) *Exchange {
	cfg.applyDefaults()

	e := &Exchange{
		cfg:      cfg,
		clock:    SystemClock{},
		logger:   slog.Default(),
		bySymbol: make(map[string]model.Stock, len(listing)),
		cells:    make(map[string]*ticker.Cell, len(listing)),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, s := range listing {
		if _, dup := e.bySymbol[s.Symbol]; dup {
			e.logger.Warn("duplicate symbol in listing, ignoring", "symbol", s.Symbol)
			continue
		}
		e.listing = append(e.listing, s)
		e.bySymbol[s.Symbol] = s
		e.cells[s.Symbol] = ticker.NewCell(s.Symbol)
	}

	e.storeIndex(math.NaN())
	return e
}

// Open starts one worker per listed stock and the eviction tick loop. It is
// a no-op while already open. Cancelling ctx does not close the exchange;
// only Close does.
func (e *Exchange) Open(ctx context.Context) *Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.open.Load() {
		return e
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	workers := make(map[string]*ticker.Worker, len(e.listing))
	for _, s := range e.listing {
		w := ticker.NewWorker(s.Symbol, e.cells[s.Symbol], e.cfg.MailboxSize, e.metrics, e.logger)
		w.Start(runCtx)
		workers[s.Symbol] = w
	}
	e.workers.Store(&workers)
	e.storeIndex(math.NaN())
	e.metrics.IndexReset()

	e.wg.Add(1)
	go e.run(runCtx)

	e.open.Store(true)

	e.logger.Info("stock exchange opened",
		"stocks", len(workers),
		"window", e.cfg.Window,
		"tick_interval", e.cfg.TickInterval,
	)
	return e
}

// Close stops the tick loop and every worker. It is a no-op while closed.
// Snapshots published before Close stay visible through Watch.
func (e *Exchange) Close(ctx context.Context) *Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open.Load() {
		return e
	}
	e.open.Store(false)

	// The tick loop may be waiting on worker acks, so stop it before the workers.
	e.cancel()
	e.wg.Wait()

	for symbol, w := range e.loadWorkers() {
		if err := w.Stop(ctx); err != nil {
			e.logger.Warn("ticker worker did not stop cleanly", "symbol", symbol, "err", err)
		}
	}

	e.logger.Info("stock exchange closed")
	return e
}

// IsOpen reports whether trading is allowed.
func (e *Exchange) IsOpen() bool {
	return e.open.Load()
}

// Buy submits a buy trade. See Sell.
func (e *Exchange) Buy(stock model.Stock, quantity int, price money.Money) error {
	return e.trade(model.Buy, stock, quantity, price)
}

// Sell submits a sell trade. It returns ErrClosed while the exchange is
// closed. Requests with a non-positive quantity or price, and requests for
// unlisted stocks, are dropped without error.
func (e *Exchange) Sell(stock model.Stock, quantity int, price money.Money) error {
	return e.trade(model.Sell, stock, quantity, price)
}

func (e *Exchange) trade(side model.Side, stock model.Stock, quantity int, price money.Money) error {
	if !e.open.Load() {
		e.metrics.TradeDropped(metrics.ReasonClosed)
		return ErrClosed
	}
	if quantity <= 0 || !price.IsDefined() {
		e.metrics.TradeDropped(metrics.ReasonMalformed)
		return nil
	}

	w, ok := e.loadWorkers()[stock.Symbol]
	if !ok {
		e.metrics.TradeDropped(metrics.ReasonUnknownSymbol)
		return nil
	}

	t := model.Trade{
		ID:        uuid.New(),
		Timestamp: e.clock.Now(),
		Side:      side,
		Symbol:    stock.Symbol,
		Quantity:  quantity,
		Price:     price,
	}
	if !w.Submit(t) {
		// Lost the race with Close.
		e.metrics.TradeDropped(metrics.ReasonStopped)
		return nil
	}

	e.metrics.TradeAccepted(side)
	return nil
}

// Watch returns the latest snapshot of stock, or the empty snapshot when the
// stock is not listed.
func (e *Exchange) Watch(stock model.Stock) model.Snapshot {
	cell, ok := e.cells[stock.Symbol]
	if !ok {
		return model.EmptySnapshot(stock.Symbol)
	}
	return cell.Load()
}

// AllShareIndex returns the index computed by the last tick, NaN when no
// stock had a positive price or no tick ran since Open.
func (e *Exchange) AllShareIndex() float64 {
	return math.Float64frombits(e.index.Load())
}

// Listing returns a copy of the listed stocks in listing order.
func (e *Exchange) Listing() []model.Stock {
	out := make([]model.Stock, len(e.listing))
	copy(out, e.listing)
	return out
}

// Find looks up a listed stock by symbol.
func (e *Exchange) Find(symbol string) (model.Stock, bool) {
	s, ok := e.bySymbol[symbol]
	return s, ok
}

// Stats returns exchange statistics.
func (e *Exchange) Stats() Stats {
	workers := e.loadWorkers()
	stats := Stats{
		Open:    e.open.Load(),
		Index:   e.AllShareIndex(),
		Ticks:   e.ticks.Load(),
		Workers: make([]ticker.WorkerStats, 0, len(workers)),
	}
	for _, w := range workers {
		stats.Workers = append(stats.Workers, w.Stats())
	}
	sort.Slice(stats.Workers, func(i, j int) bool {
		return stats.Workers[i].Symbol < stats.Workers[j].Symbol
	})
	return stats
}

// run is the eviction tick loop.
func (e *Exchange) run(ctx context.Context) {
	defer e.wg.Done()

	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.tick()
		}
	}
}

// tick evicts expired trades from every worker, waits until each has
// republished, then recomputes the index.
func (e *Exchange) tick() float64 {
	start := time.Now()
	cutoff := e.clock.Now().Add(-e.cfg.Window)

	var acks sync.WaitGroup
	for _, w := range e.loadWorkers() {
		acks.Add(1)
		if !w.Evict(cutoff, acks.Done) {
			acks.Done()
		}
	}
	acks.Wait()

	index := e.computeIndex()
	e.storeIndex(index)
	e.ticks.Add(1)

	duration := time.Since(start)
	e.metrics.TickCompleted(duration, index)
	e.logger.Debug("tick complete",
		"cutoff", cutoff,
		"index", index,
		"duration", duration,
	)
	return index
}

// computeIndex returns the geometric mean of every defined price.
func (e *Exchange) computeIndex() float64 {
	prices := make([]float64, 0, len(e.listing))
	for _, s := range e.listing {
		price := e.cells[s.Symbol].Load().Price
		if price.IsDefined() {
			prices = append(prices, price.Float64())
		}
	}
	return geometricMean(prices)
}

// geometricMean returns (Π v)^(1/n), NaN for an empty input. It falls back
// to the mean of logarithms when the product leaves float64 range.
func geometricMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	n := float64(len(values))
	product := 1.0
	for _, v := range values {
		product *= v
	}
	if product > 0 && !math.IsInf(product, 0) {
		return math.Pow(product, 1/n)
	}

	var logs float64
	for _, v := range values {
		logs += math.Log(v)
	}
	return math.Exp(logs / n)
}

func (e *Exchange) loadWorkers() map[string]*ticker.Worker {
	if p := e.workers.Load(); p != nil {
		return *p
	}
	return nil
}

func (e *Exchange) storeIndex(v float64) {
	e.index.Store(math.Float64bits(v))
}
