package ticker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/model"
)

// DefaultMailboxSize is the initial mailbox capacity of a worker.
const DefaultMailboxSize = 64

// message is either a trade or an eviction tick.
type message struct {
	trade  *model.Trade
	cutoff time.Time
	done   func()
}

// WorkerStats contains runtime statistics of one worker.
type WorkerStats struct {
	Symbol  string
	Trades  int
	Mailbox MailboxStats
}

// Worker applies trades and ticks for one stock, strictly in arrival order.
type Worker struct {
	symbol  string
	engine  *Engine
	mailbox *Mailbox[message]
	metrics *metrics.Metrics
	logger  *slog.Logger

	stopOnCancel func() bool
	wg           sync.WaitGroup

	mu     sync.Mutex
	trades int
}

// NewWorker creates a worker publishing snapshots of symbol into cell.
// metrics may be nil.
func NewWorker(symbol string, cell *Cell, mailboxSize int, m *metrics.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if mailboxSize < 1 {
		mailboxSize = DefaultMailboxSize
	}

	w := &Worker{
		symbol:  symbol,
		mailbox: NewMailbox[message](mailboxSize),
		metrics: m,
		logger:  logger.With("symbol", symbol),
	}
	w.engine = NewEngine(symbol, cell)
	m.SnapshotPublished(cell.Load())
	return w
}

// Start begins processing the mailbox. Cancelling ctx has the same effect
// as Stop without waiting.
func (w *Worker) Start(ctx context.Context) {
	w.stopOnCancel = context.AfterFunc(ctx, w.mailbox.Close)

	w.wg.Add(1)
	go w.run()

	w.logger.Debug("ticker worker started")
}

// Stop closes the mailbox and waits until every message delivered before
// the call has been applied.
func (w *Worker) Stop(ctx context.Context) error {
	w.mailbox.Close()
	if w.stopOnCancel != nil {
		w.stopOnCancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Debug("ticker worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("ticker worker stop timed out", "pending", w.mailbox.Len())
		return ctx.Err()
	}
}

// Submit enqueues a trade. It returns false once the worker is stopping.
func (w *Worker) Submit(t model.Trade) bool {
	return w.mailbox.Send(message{trade: &t})
}

// Evict enqueues an eviction tick for cutoff. done, if not nil, is called
// after the resulting snapshot is published. It returns false, without
// calling done, once the worker is stopping.
func (w *Worker) Evict(cutoff time.Time, done func()) bool {
	return w.mailbox.Send(message{cutoff: cutoff, done: done})
}

// Symbol returns the stock symbol handled by w.
func (w *Worker) Symbol() string {
	return w.symbol
}

// Stats returns current worker statistics.
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	trades := w.trades
	w.mu.Unlock()

	return WorkerStats{
		Symbol:  w.symbol,
		Trades:  trades,
		Mailbox: w.mailbox.Stats(),
	}
}

// run drains the mailbox until it is closed and empty.
func (w *Worker) run() {
	defer w.wg.Done()

	for {
		msg, ok := w.mailbox.Receive()
		if !ok {
			return
		}
		w.handle(msg)
	}
}

func (w *Worker) handle(msg message) {
	if msg.trade != nil {
		w.engine.SubmitTrade(*msg.trade)
		w.metrics.TradeApplied(w.symbol)
	} else {
		n := w.engine.EvictBefore(msg.cutoff)
		w.metrics.TradesEvicted(w.symbol, n)
		if n > 0 {
			w.logger.Debug("evicted expired trades", "count", n, "cutoff", msg.cutoff)
		}
	}

	w.mu.Lock()
	w.trades = w.engine.Len()
	w.mu.Unlock()

	w.metrics.SnapshotPublished(w.engine.cell.Load())

	if msg.done != nil {
		msg.done()
	}
}
