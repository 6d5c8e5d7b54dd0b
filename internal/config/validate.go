package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Exchange.Window <= 0 {
		return errors.New("exchange.window must be > 0")
	}
	if c.Exchange.TickInterval <= 0 {
		return errors.New("exchange.tick_interval must be > 0")
	}
	if c.Exchange.TickInterval > c.Exchange.Window {
		return fmt.Errorf("exchange.tick_interval (%s) cannot exceed window (%s)", c.Exchange.TickInterval, c.Exchange.Window)
	}
	if c.Exchange.MailboxSize < 1 {
		return errors.New("exchange.mailbox_size must be >= 1")
	}

	if c.Simulation.IsEnabled() {
		if c.Simulation.TradeInterval <= 0 {
			return errors.New("simulation.trade_interval must be > 0")
		}
		if c.Simulation.Traders < 1 {
			return errors.New("simulation.traders must be >= 1")
		}
		if c.Simulation.MaxQuantity < 1 {
			return errors.New("simulation.max_quantity must be >= 1")
		}
		if c.Simulation.ReportInterval <= 0 {
			return errors.New("simulation.report_interval must be > 0")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PushInterval <= 0 {
		return errors.New("server.push_interval must be > 0")
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	if c.Recorder.Enabled {
		if c.Recorder.Interval <= 0 {
			return errors.New("recorder.interval must be > 0")
		}
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
