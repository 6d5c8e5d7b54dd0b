package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID     = "gbce"
	DefaultWindow         = 15 * time.Minute
	DefaultTickInterval   = 1 * time.Second
	DefaultMailboxSize    = 64
	DefaultTradeInterval  = 100 * time.Millisecond
	DefaultTraders        = 100
	DefaultMaxQuantity    = 1000
	DefaultReportInterval = 5 * time.Second
	DefaultServerPort     = 8080
	DefaultPushInterval   = 1 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultMetricsPath    = "/metrics"
	DefaultRecordInterval = 5 * time.Second
	DefaultBatchSize      = 1000
	DefaultFlushInterval  = 1 * time.Second
	DefaultBufferSize     = 10000
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 10
	DefaultMinConns       = 2
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

func (c *Config) applyDefaults() {
	// Exchange defaults
	if c.Exchange.Window == 0 {
		c.Exchange.Window = DefaultWindow
	}
	if c.Exchange.TickInterval == 0 {
		c.Exchange.TickInterval = DefaultTickInterval
	}
	if c.Exchange.MailboxSize == 0 {
		c.Exchange.MailboxSize = DefaultMailboxSize
	}

	// Simulation defaults
	if c.Simulation.TradeInterval == 0 {
		c.Simulation.TradeInterval = DefaultTradeInterval
	}
	if c.Simulation.Traders == 0 {
		c.Simulation.Traders = DefaultTraders
	}
	if c.Simulation.MaxQuantity == 0 {
		c.Simulation.MaxQuantity = DefaultMaxQuantity
	}
	if c.Simulation.ReportInterval == 0 {
		c.Simulation.ReportInterval = DefaultReportInterval
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.PushInterval == 0 {
		c.Server.PushInterval = DefaultPushInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Recorder defaults
	if c.Recorder.Interval == 0 {
		c.Recorder.Interval = DefaultRecordInterval
	}
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
