package simulation

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/exchange"
	"github.com/rickgao/stockexchange/internal/model"
)

// TraderConfig holds trader configuration.
type TraderConfig struct {
	Interval    time.Duration // Round period (default: 100ms)
	Traders     int           // Concurrent traders per round (default: 100)
	MaxQuantity int           // Upper bound of a random quantity (default: 1000)
	Seed        uint64        // Random seed, 0 picks one
}

// DefaultTraderConfig returns sensible defaults.
func DefaultTraderConfig() TraderConfig {
	return TraderConfig{
		Interval:    100 * time.Millisecond,
		Traders:     100,
		MaxQuantity: 1000,
	}
}

// Trader periodically sends randomized orders for every listed stock.
type Trader struct {
	cfg    TraderConfig
	market Market
	logger *slog.Logger
	rngs   []*rand.Rand

	submitted atomic.Int64
	rejected  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrader creates a trader over market.
func NewTrader(cfg TraderConfig, market Market, logger *slog.Logger) *Trader {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultTraderConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Traders <= 0 {
		cfg.Traders = def.Traders
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = def.MaxQuantity
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	// One generator per trader; rand.Rand is not safe for concurrent use.
	rngs := make([]*rand.Rand, cfg.Traders)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(seed, uint64(i)))
	}

	return &Trader{
		cfg:    cfg,
		market: market,
		logger: logger,
		rngs:   rngs,
	}
}

// Start begins the trading loop.
func (t *Trader) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.wg.Add(1)
	go t.run()

	t.logger.Info("trader started",
		"interval", t.cfg.Interval,
		"traders", t.cfg.Traders,
	)
	return nil
}

// Stop gracefully shuts down the trader.
func (t *Trader) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("trader stopped",
			"submitted", t.submitted.Load(),
			"rejected", t.rejected.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submitted returns the number of orders the market accepted.
func (t *Trader) Submitted() int64 {
	return t.submitted.Load()
}

func (t *Trader) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.tradeRound()
		}
	}
}

// tradeRound lets every trader trade the whole listing once.
func (t *Trader) tradeRound() {
	listing := t.market.Listing()

	var wg sync.WaitGroup
	for _, rng := range t.rngs {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()
			t.trade(rng, listing)
		}(rng)
	}
	wg.Wait()
}

// trade sells above and buys below the current price by a random margin
// in [1, 2). Stocks without a price trade at a random fraction of par.
func (t *Trader) trade(rng *rand.Rand, listing []model.Stock) {
	margin := decimal.NewFromFloat(1 + rng.Float64())

	for _, stock := range listing {
		price := t.market.Watch(stock).Price

		sellPrice := price.Multiply(margin)
		if !sellPrice.IsDefined() {
			sellPrice = randomPrice(rng, stock.ParValue)
		}
		t.record(t.market.Sell(stock, randomQuantity(rng, t.cfg.MaxQuantity), sellPrice))

		buyPrice := price.Divide(margin)
		if !buyPrice.IsDefined() {
			buyPrice = randomPrice(rng, stock.ParValue)
		}
		t.record(t.market.Buy(stock, randomQuantity(rng, t.cfg.MaxQuantity), buyPrice))
	}
}

func (t *Trader) record(err error) {
	if err == nil {
		t.submitted.Add(1)
		return
	}
	t.rejected.Add(1)
	if errors.Is(err, exchange.ErrClosed) {
		t.logger.Debug("order rejected", "err", err)
		return
	}
	t.logger.Warn("order failed", "err", err)
}
