package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/stockexchange/internal/model"
)

const namespace = "gbce"

// Drop reasons.
const (
	ReasonMalformed     = "malformed"
	ReasonUnknownSymbol = "unknown_symbol"
	ReasonClosed        = "closed"
	ReasonStopped       = "worker_stopped"
)

// Metrics holds the exchange collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	tradesAccepted *prometheus.CounterVec
	tradesDropped  *prometheus.CounterVec
	tradesApplied  *prometheus.CounterVec
	tradesEvicted  *prometheus.CounterVec

	ticks        prometheus.Counter
	tickDuration prometheus.Histogram

	index    prometheus.Gauge
	price    *prometheus.GaugeVec
	quantity *prometheus.GaugeVec
	volume   *prometheus.GaugeVec
}

// New creates and registers all collectors, including Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tradesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_accepted_total",
			Help:      "Trades forwarded to a ticker worker.",
		}, []string{"side"}),
		tradesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_dropped_total",
			Help:      "Trade requests that never reached a ticker.",
		}, []string{"reason"}),
		tradesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticker_trades_applied_total",
			Help:      "Trades added to a ticker window.",
		}, []string{"symbol"}),
		tradesEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticker_trades_evicted_total",
			Help:      "Trades that expired out of a ticker window.",
		}, []string{"symbol"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed eviction ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time from tick broadcast to index recomputation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		index: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "all_share_index",
			Help:      "Geometric mean of all defined stock prices.",
		}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticker_price",
			Help:      "Volume-weighted average price over the window.",
		}, []string{"symbol"}),
		quantity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticker_quantity",
			Help:      "Shares traded over the window.",
		}, []string{"symbol"}),
		volume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticker_volume",
			Help:      "Traded value over the window.",
		}, []string{"symbol"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tradesAccepted,
		m.tradesDropped,
		m.tradesApplied,
		m.tradesEvicted,
		m.ticks,
		m.tickDuration,
		m.index,
		m.price,
		m.quantity,
		m.volume,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TradeAccepted counts a trade handed to a worker.
func (m *Metrics) TradeAccepted(side model.Side) {
	if m == nil {
		return
	}
	m.tradesAccepted.WithLabelValues(side.String()).Inc()
}

// TradeDropped counts a trade request that was ignored or rejected.
func (m *Metrics) TradeDropped(reason string) {
	if m == nil {
		return
	}
	m.tradesDropped.WithLabelValues(reason).Inc()
}

// TradeApplied counts a trade added to a window.
func (m *Metrics) TradeApplied(symbol string) {
	if m == nil {
		return
	}
	m.tradesApplied.WithLabelValues(symbol).Inc()
}

// TradesEvicted counts trades dropped from a window.
func (m *Metrics) TradesEvicted(symbol string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tradesEvicted.WithLabelValues(symbol).Add(float64(n))
}

// SnapshotPublished mirrors a ticker snapshot into the gauges.
func (m *Metrics) SnapshotPublished(s model.Snapshot) {
	if m == nil {
		return
	}
	m.price.WithLabelValues(s.Symbol).Set(s.Price.Float64())
	m.quantity.WithLabelValues(s.Symbol).Set(float64(s.Quantity))
	m.volume.WithLabelValues(s.Symbol).Set(s.Volume.Float64())
}

// TickCompleted records a finished eviction tick and the resulting index.
func (m *Metrics) TickCompleted(d time.Duration, index float64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.index.Set(index)
}

// IndexReset marks the index as not yet computed.
func (m *Metrics) IndexReset() {
	if m == nil {
		return
	}
	m.index.Set(math.NaN())
}
