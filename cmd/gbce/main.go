package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockexchange/internal/config"
	"github.com/rickgao/stockexchange/internal/database"
	"github.com/rickgao/stockexchange/internal/exchange"
	"github.com/rickgao/stockexchange/internal/feed"
	"github.com/rickgao/stockexchange/internal/listing"
	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/recorder"
	"github.com/rickgao/stockexchange/internal/simulation"
	"github.com/rickgao/stockexchange/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (built-in defaults when empty)")
	traders := flag.Int("traders", 0, "number of simulated traders (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("gbce", version.String())
		return
	}

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if *traders > 0 {
		cfg.Simulation.Traders = *traders
	}

	// Set up structured logging
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting gbce",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("gbce failed", "error", err)
		os.Exit(1)
	}

	logger.Info("gbce stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	stocks, err := loadListing(cfg.Listing)
	if err != nil {
		return err
	}
	logger.Info("listing loaded", "stocks", len(stocks), "path", cfg.Listing.Path)

	m := metrics.New()
	ex := exchange.New(stocks,
		exchange.Config{
			Window:       cfg.Exchange.Window,
			TickInterval: cfg.Exchange.TickInterval,
			MailboxSize:  cfg.Exchange.MailboxSize,
		},
		exchange.WithLogger(logger),
		exchange.WithMetrics(m),
	)

	// Connect to database only when recording
	var pool *pgxpool.Pool
	if cfg.Recorder.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database.Timescale, cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connect timescale: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database connected")
	}

	var db feed.Pinger
	if pool != nil {
		db = pool
	}
	feedServer := feed.NewServer(feed.Config{
		InstanceID:   cfg.Instance.ID,
		MetricsPath:  cfg.Metrics.Path,
		PushInterval: cfg.Server.PushInterval,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, ex, m, db, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           feedServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ex.Open(ctx)

	// Periodic components stopped in reverse order on shutdown.
	type component interface {
		Start(ctx context.Context) error
		Stop(ctx context.Context) error
	}
	var components []component

	if cfg.Recorder.Enabled {
		components = append(components, recorder.New(recorder.Config{
			InstanceID:    cfg.Instance.ID,
			Interval:      cfg.Recorder.Interval,
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, ex, pool, logger))
	}
	if cfg.Simulation.IsEnabled() {
		components = append(components,
			simulation.NewTrader(simulation.TraderConfig{
				Interval:    cfg.Simulation.TradeInterval,
				Traders:     cfg.Simulation.Traders,
				MaxQuantity: cfg.Simulation.MaxQuantity,
				Seed:        cfg.Simulation.Seed,
			}, ex, logger),
			simulation.NewReporter(cfg.Simulation.ReportInterval, ex, os.Stdout, logger),
		)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, c := range components {
		if err := c.Start(gctx); err != nil {
			ex.Close(context.Background())
			return err
		}
	}

	g.Go(func() error {
		logger.Info("starting feed server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("feed server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		feedServer.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("feed server shutdown", "error", err)
		}
		for i := len(components) - 1; i >= 0; i-- {
			if err := components[i].Stop(shutdownCtx); err != nil {
				logger.Warn("component stop", "error", err)
			}
		}
		ex.Close(shutdownCtx)
		return nil
	})

	logger.Info("gbce running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		"simulation", cfg.Simulation.IsEnabled(),
		"recorder", cfg.Recorder.Enabled,
	)

	return g.Wait()
}

func loadListing(cfg config.ListingConfig) ([]model.Stock, error) {
	if cfg.Path == "" {
		return listing.Default(), nil
	}
	stocks, err := listing.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	return stocks, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
