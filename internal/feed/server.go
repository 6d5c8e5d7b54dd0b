package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockexchange/internal/metrics"
	"github.com/rickgao/stockexchange/internal/version"
)

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds feed configuration.
type Config struct {
	InstanceID   string
	MetricsPath  string        // default: /metrics
	PushInterval time.Duration // websocket push period (default: 1s)
	WriteTimeout time.Duration // websocket write deadline (default: 10s)
}

// Server serves the exchange board.
type Server struct {
	cfg     Config
	market  Market
	metrics *metrics.Metrics
	db      Pinger
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	streams int
	done    chan struct{}
	closed  bool
}

// NewServer creates a feed server. metrics and db may be nil.
func NewServer(cfg Config, market Market, m *metrics.Metrics, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Server{
		cfg:     cfg,
		market:  market,
		metrics: m,
		db:      db,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		done: make(chan struct{}),
	}
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tickers", s.handleTickers)
	mux.HandleFunc("GET /index", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleStream)
	if s.metrics != nil {
		mux.Handle("GET "+s.cfg.MetricsPath, s.metrics.Handler())
	}
	return mux
}

// Close ends every open websocket stream. http.Server.Shutdown does not
// touch hijacked connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Streams returns the number of connected websocket clients.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Instance   string         `json:"instance"`
		Build      version.Info   `json:"build"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Instance:   s.cfg.InstanceID,
		Build:      version.Get(),
		Components: make(map[string]any),
	}

	// Check exchange
	if s.market.IsOpen() {
		health.Components["exchange"] = map[string]any{
			"status": "open",
			"stocks": len(s.market.Listing()),
		}
	} else {
		health.Status = "degraded"
		health.Components["exchange"] = map[string]any{"status": "closed"}
	}

	// Check database
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}
	}

	health.Components["streams"] = s.Streams()

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	board := BuildBoard(s.market, time.Now())

	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		for _, t := range board.Tickers {
			if t.Symbol == symbol {
				writeJSON(w, t)
				return
			}
		}
		http.Error(w, "unknown symbol "+symbol, http.StatusNotFound)
		return
	}

	writeJSON(w, board)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Index *float64 `json:"index"`
		Open  bool     `json:"open"`
	}{
		Index: finite(s.market.AllShareIndex()),
		Open:  s.market.IsOpen(),
	})
}

// handleStream pushes the board every PushInterval until the client goes
// away, a write fails or the server closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.streams--
		s.mu.Unlock()
	}()

	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Debug("stream opened")

	// Control frames are only processed while reading.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		if err := s.push(conn); err != nil {
			logger.Debug("stream write failed", "error", err)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			logger.Debug("stream closed by client")
			return
		case <-s.done:
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) push(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(BuildBoard(s.market, time.Now()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
