package config

import "time"

// Config is the root configuration of a gbce instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Listing    ListingConfig    `yaml:"listing"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this exchange.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ExchangeConfig holds ticker window settings.
type ExchangeConfig struct {
	Window       time.Duration `yaml:"window"`
	TickInterval time.Duration `yaml:"tick_interval"`
	MailboxSize  int           `yaml:"mailbox_size"`
}

// ListingConfig selects the listed stocks. An empty path uses the built-in
// GBCE listing.
type ListingConfig struct {
	Path string `yaml:"path"`
}

// SimulationConfig holds the synthetic trader and reporter settings.
type SimulationConfig struct {
	Enabled        *bool         `yaml:"enabled"`
	TradeInterval  time.Duration `yaml:"trade_interval"`
	Traders        int           `yaml:"traders"`
	MaxQuantity    int           `yaml:"max_quantity"`
	Seed           uint64        `yaml:"seed"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// IsEnabled reports whether the simulation runs. Defaults to true.
func (s SimulationConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ServerConfig holds the HTTP feed settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	PushInterval time.Duration `yaml:"push_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// RecorderConfig holds ticker history recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the TimescaleDB connection for recorded ticker history.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
