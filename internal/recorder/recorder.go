package recorder

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockexchange/internal/money"
)

const (
	insertSnapshotSQL = `
		INSERT INTO ticker_snapshots (sampled_at, instance_id, symbol, price, quantity, volume)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, instance_id, sampled_at) DO NOTHING`

	insertIndexSQL = `
		INSERT INTO index_samples (sampled_at, instance_id, value, priced)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instance_id, sampled_at) DO NOTHING`
)

// Recorder periodically samples a Source and writes the samples to the database.
type Recorder struct {
	cfg    Config
	source Source
	db     BatchSender
	logger *slog.Logger
	now    func() time.Time

	// Batching
	mu        sync.Mutex
	snapshots []snapshotRow
	indexes   []indexRow
	stats     Stats

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Recorder.
func New(cfg Config, source Source, db BatchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < cfg.BatchSize {
		cfg.BufferSize = max(def.BufferSize, cfg.BatchSize)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = def.InstanceID
	}

	return &Recorder{
		cfg:    cfg,
		source: source,
		db:     db,
		logger: logger,
		now:    time.Now,
		ctx:    context.Background(),
	}
}

// Start begins sampling and flushing.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.sampleLoop()
	go r.flushLoop()

	r.logger.Info("recorder started",
		"interval", r.cfg.Interval,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the loops and writes whatever is still pending.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush outlives the cancelled run context.
	r.flush(ctx)

	r.logger.Info("recorder stopped", "stats", r.Stats())
	return nil
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Recorder) sampleLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush(r.ctx)
		}
	}
}

// sample queues one row per listed stock plus one index row. A closed
// exchange is not sampled.
func (r *Recorder) sample() {
	if !r.source.IsOpen() {
		return
	}

	at := r.now().UTC()
	listing := r.source.Listing()

	rows := make([]snapshotRow, 0, len(listing))
	priced := 0
	for _, stock := range listing {
		s := r.source.Watch(stock)
		if s.Price.IsDefined() {
			priced++
		}
		rows = append(rows, snapshotRow{
			SampledAt: at,
			Symbol:    s.Symbol,
			Price:     numeric(s.Price),
			Quantity:  int64(s.Quantity),
			Volume:    numeric(s.Volume),
		})
	}

	var value any
	if index := r.source.AllShareIndex(); !math.IsNaN(index) {
		value = index
	}

	r.mu.Lock()
	r.snapshots = append(r.snapshots, rows...)
	r.indexes = append(r.indexes, indexRow{SampledAt: at, Value: value, Priced: priced})
	r.stats.Samples++
	shouldFlush := len(r.snapshots)+len(r.indexes) >= r.cfg.BatchSize
	r.mu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// flush writes the pending rows. On failure the rows are put back, bounded
// by BufferSize.
func (r *Recorder) flush(ctx context.Context) {
	r.mu.Lock()
	if len(r.snapshots) == 0 && len(r.indexes) == 0 {
		r.mu.Unlock()
		return
	}

	// Take ownership of current batch
	snapshots, indexes := r.snapshots, r.indexes
	r.snapshots, r.indexes = nil, nil
	r.mu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(ctx, snapshots, indexes)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(snapshots)+len(indexes))
		r.requeue(snapshots, indexes)
		return
	}

	count := len(snapshots) + len(indexes)
	r.mu.Lock()
	r.stats.Inserts += int64(count - conflicts)
	r.stats.Conflicts += int64(conflicts)
	r.stats.Flushes++
	r.mu.Unlock()

	r.logger.Debug("flushed ticker samples",
		"count", count,
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// requeue puts failed rows in front of anything sampled since, dropping the
// oldest rows beyond BufferSize.
func (r *Recorder) requeue(snapshots []snapshotRow, indexes []indexRow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Errors++
	r.snapshots = append(snapshots, r.snapshots...)
	r.indexes = append(indexes, r.indexes...)

	for len(r.snapshots)+len(r.indexes) > r.cfg.BufferSize {
		// Drop whole samples: one index row and the snapshot rows taken with it.
		if len(r.indexes) == 0 {
			r.snapshots = r.snapshots[1:]
			r.stats.Dropped++
			continue
		}
		oldest := r.indexes[0].SampledAt
		r.indexes = r.indexes[1:]
		r.stats.Dropped++
		for len(r.snapshots) > 0 && !r.snapshots[0].SampledAt.After(oldest) {
			r.snapshots = r.snapshots[1:]
			r.stats.Dropped++
		}
	}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(ctx context.Context, snapshots []snapshotRow, indexes []indexRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(insertSnapshotSQL, s.SampledAt, r.cfg.InstanceID, s.Symbol, s.Price, s.Quantity, s.Volume)
	}
	for _, i := range indexes {
		batch.Queue(insertIndexSQL, i.SampledAt, r.cfg.InstanceID, i.Value, i.Priced)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range batch.Len() {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

// numeric converts an amount for a NUMERIC column, nil for Undefined.
func numeric(m money.Money) any {
	if m.IsUndefined() {
		return nil
	}
	return m.Decimal()
}
