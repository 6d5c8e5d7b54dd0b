package recorder

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockexchange/internal/model"
)

// Config contains recorder configuration.
type Config struct {
	InstanceID    string        // Written with every row
	Interval      time.Duration // Sampling period (default: 5s)
	BatchSize     int           // Rows per flush (default: 1000)
	FlushInterval time.Duration // Maximum time between flushes (default: 1s)
	BufferSize    int           // Rows retained across failed flushes (default: 10000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		InstanceID:    "gbce",
		Interval:      5 * time.Second,
		BatchSize:     1000,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Source is the exchange state being recorded.
type Source interface {
	IsOpen() bool
	Listing() []model.Stock
	Watch(stock model.Stock) model.Snapshot
	AllShareIndex() float64
}

// BatchSender sends a batch of statements. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Stats holds recorder counters.
type Stats struct {
	Samples   int64
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64
}

// snapshotRow is a row of the ticker_snapshots table.
type snapshotRow struct {
	SampledAt time.Time
	Symbol    string
	Price     any // NUMERIC, nil when undefined
	Quantity  int64
	Volume    any // NUMERIC
}

// indexRow is a row of the index_samples table.
type indexRow struct {
	SampledAt time.Time
	Value     any // DOUBLE PRECISION, nil when NaN
	Priced    int // Stocks with a defined price
}
