package exchange

import (
	"errors"
	"log/slog"
	"time"

	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/ticker"
)

// ErrClosed is returned by Buy and Sell while the exchange is not open.
var ErrClosed = errors.New("stock exchange is closed")

// Default configuration values.
const (
	DefaultWindow       = 15 * time.Minute
	DefaultTickInterval = time.Second
)

// Config holds exchange configuration.
type Config struct {
	Window       time.Duration // Trailing window of each ticker (default: 15m)
	TickInterval time.Duration // Eviction tick period (default: 1s)
	MailboxSize  int           // Initial worker mailbox capacity (default: 64)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Window:       DefaultWindow,
		TickInterval: DefaultTickInterval,
		MailboxSize:  ticker.DefaultMailboxSize,
	}
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = ticker.DefaultMailboxSize
	}
}

// Clock supplies trade timestamps and eviction cutoffs.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Option configures an Exchange.
type Option func(*Exchange)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Exchange) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exchange) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records exchange activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exchange) {
		e.metrics = m
	}
}

// Stats contains a point-in-time view of the exchange.
type Stats struct {
	Open    bool
	Index   float64
	Ticks   int64
	Workers []ticker.WorkerStats
}
