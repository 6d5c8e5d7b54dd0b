package recorder

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

// mockSource serves fixed exchange state.
type mockSource struct {
	open      bool
	listing   []model.Stock
	snapshots map[string]model.Snapshot
	index     float64
}

func (m *mockSource) IsOpen() bool           { return m.open }
func (m *mockSource) Listing() []model.Stock { return m.listing }
func (m *mockSource) AllShareIndex() float64 { return m.index }

func (m *mockSource) Watch(stock model.Stock) model.Snapshot {
	if s, ok := m.snapshots[stock.Symbol]; ok {
		return s
	}
	return model.EmptySnapshot(stock.Symbol)
}

// mockDB records batches. Every conflictEvery-th statement reports zero rows.
type mockDB struct {
	mu            sync.Mutex
	batches       [][]*pgx.QueuedQuery
	err           error
	conflictEvery int
}

func (m *mockDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, b.QueuedQueries)
	return &mockResults{err: m.err, conflictEvery: m.conflictEvery}
}

func (m *mockDB) queries() []*pgx.QueuedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*pgx.QueuedQuery
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

type mockResults struct {
	n             int
	err           error
	conflictEvery int
}

func (r *mockResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	r.n++
	if r.conflictEvery > 0 && r.n%r.conflictEvery == 0 {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *mockResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *mockResults) QueryRow() pgx.Row        { return nil }
func (r *mockResults) Close() error             { return nil }

var sampledAt = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newSource() *mockSource {
	tea := model.Stock{Symbol: "TEA", ParValue: money.FromInt(100)}
	pop := model.Stock{Symbol: "POP", ParValue: money.FromInt(100)}
	return &mockSource{
		open:    true,
		listing: []model.Stock{tea, pop},
		snapshots: map[string]model.Snapshot{
			"POP": {Symbol: "POP", Price: money.New(decimal.RequireFromString("13.3333")), Quantity: 150, Volume: money.FromInt(2000)},
		},
		index: 13.3333,
	}
}

func newTestRecorder(source Source, db BatchSender, cfg Config) *Recorder {
	r := New(cfg, source, db, nil)
	r.now = func() time.Time { return sampledAt }
	return r
}

func TestRecorder_SampleAndFlush(t *testing.T) {
	db := &mockDB{}
	r := newTestRecorder(newSource(), db, Config{InstanceID: "test", BatchSize: 100})

	r.sample()
	r.flush(context.Background())

	queries := db.queries()
	if len(queries) != 3 {
		t.Fatalf("queued = %d, want 3 (2 snapshots + 1 index)", len(queries))
	}

	tea := queries[0].Arguments
	if at, _ := tea[0].(time.Time); !at.Equal(sampledAt) || tea[1] != "test" || tea[2] != "TEA" {
		t.Errorf("TEA row key = %v", tea[:3])
	}
	if tea[3] != nil {
		t.Errorf("TEA price = %v, want NULL", tea[3])
	}
	if tea[4] != int64(0) {
		t.Errorf("TEA quantity = %v, want 0", tea[4])
	}

	pop := queries[1].Arguments
	if d, ok := pop[3].(decimal.Decimal); !ok || !d.Equal(decimal.RequireFromString("13.3333")) {
		t.Errorf("POP price = %v, want 13.3333", pop[3])
	}
	if pop[4] != int64(150) {
		t.Errorf("POP quantity = %v, want 150", pop[4])
	}

	index := queries[2].Arguments
	if index[2] != 13.3333 || index[3] != 1 {
		t.Errorf("index row = %v, want value 13.3333 priced 1", index)
	}

	stats := r.Stats()
	if stats.Samples != 1 || stats.Inserts != 3 || stats.Flushes != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestRecorder_NaNIndexIsNull(t *testing.T) {
	source := newSource()
	source.index = math.NaN()
	source.snapshots = nil
	db := &mockDB{}
	r := newTestRecorder(source, db, Config{BatchSize: 100})

	r.sample()
	r.flush(context.Background())

	queries := db.queries()
	index := queries[len(queries)-1].Arguments
	if index[2] != nil {
		t.Errorf("index value = %v, want NULL", index[2])
	}
	if index[3] != 0 {
		t.Errorf("priced = %v, want 0", index[3])
	}
}

func TestRecorder_SkipsClosedExchange(t *testing.T) {
	source := newSource()
	source.open = false
	db := &mockDB{}
	r := newTestRecorder(source, db, Config{})

	r.sample()
	r.flush(context.Background())

	if len(db.queries()) != 0 {
		t.Errorf("queued %d rows for a closed exchange", len(db.queries()))
	}
	if r.Stats().Samples != 0 {
		t.Errorf("Samples = %d, want 0", r.Stats().Samples)
	}
}

func TestRecorder_FlushesAtBatchSize(t *testing.T) {
	db := &mockDB{}
	r := newTestRecorder(newSource(), db, Config{BatchSize: 6})

	r.sample()
	if len(db.batches) != 0 {
		t.Fatal("flushed before reaching batch size")
	}
	r.sample()
	if len(db.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(db.batches))
	}
	if len(db.batches[0]) != 6 {
		t.Errorf("batch length = %d, want 6", len(db.batches[0]))
	}
}

func TestRecorder_CountsConflicts(t *testing.T) {
	db := &mockDB{conflictEvery: 3}
	r := newTestRecorder(newSource(), db, Config{BatchSize: 100})

	r.sample()
	r.sample()
	r.flush(context.Background())

	stats := r.Stats()
	if stats.Conflicts != 2 || stats.Inserts != 4 {
		t.Errorf("Conflicts = %d, Inserts = %d; want 2, 4", stats.Conflicts, stats.Inserts)
	}
}

func TestRecorder_RequeueOnError(t *testing.T) {
	db := &mockDB{err: errors.New("connection refused")}
	r := newTestRecorder(newSource(), db, Config{BatchSize: 100, BufferSize: 100})

	r.sample()
	r.flush(context.Background())

	if r.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", r.Stats().Errors)
	}

	db.mu.Lock()
	db.err = nil
	db.mu.Unlock()

	r.sample()
	r.flush(context.Background())

	stats := r.Stats()
	if stats.Inserts != 6 {
		t.Errorf("Inserts = %d, want 6 after recovery", stats.Inserts)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

func TestRecorder_RequeueDropsOldest(t *testing.T) {
	db := &mockDB{err: errors.New("connection refused")}
	r := newTestRecorder(newSource(), db, Config{BatchSize: 3, BufferSize: 3})

	now := sampledAt
	for i := 0; i < 3; i++ {
		r.now = func() time.Time { return now }
		r.sample()
		now = now.Add(time.Second)
	}

	r.mu.Lock()
	pending := len(r.snapshots) + len(r.indexes)
	newest := r.indexes[len(r.indexes)-1].SampledAt
	r.mu.Unlock()

	if pending > 3 {
		t.Errorf("pending = %d, want <= 3", pending)
	}
	if !newest.Equal(sampledAt.Add(2 * time.Second)) {
		t.Errorf("newest sample = %v, want the last one", newest)
	}
	if r.Stats().Dropped == 0 {
		t.Error("Dropped = 0, want > 0")
	}
}

func TestRecorder_StartStop(t *testing.T) {
	db := &mockDB{}
	r := New(Config{Interval: 5 * time.Millisecond, FlushInterval: time.Hour, BatchSize: 1000}, newSource(), db, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Everything sampled is written by the final flush.
	stats := r.Stats()
	if stats.Samples == 0 {
		t.Fatal("no samples taken")
	}
	if stats.Inserts != stats.Samples*3 {
		t.Errorf("Inserts = %d, want %d", stats.Inserts, stats.Samples*3)
	}
}
