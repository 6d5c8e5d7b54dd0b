package feedclient

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rickgao/stockexchange/internal/feed"
	"github.com/rickgao/stockexchange/internal/version"
)

// Health is the /health response.
type Health struct {
	Status     string                     `json:"status"`
	Instance   string                     `json:"instance"`
	Build      version.Info               `json:"build"`
	Components map[string]json.RawMessage `json:"components"`
}

// Healthy reports whether the feed answered "healthy".
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// IndexReading is the /index response. Value is nil while undefined.
type IndexReading struct {
	Value *float64 `json:"index"`
	Open  bool     `json:"open"`
}

// Health fetches the health report. A 503 is returned as a *HTTPError after
// retries run out.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Board fetches every ticker plus the index.
func (c *Client) Board(ctx context.Context) (*feed.Board, error) {
	var b feed.Board
	if err := c.get(ctx, "/tickers", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Ticker fetches one stock. Unknown symbols come back as a 404 *HTTPError.
func (c *Client) Ticker(ctx context.Context, symbol string) (*feed.Ticker, error) {
	var t feed.Ticker
	if err := c.get(ctx, "/tickers", url.Values{"symbol": {symbol}}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Index fetches the All Share Index.
func (c *Client) Index(ctx context.Context) (*IndexReading, error) {
	var r IndexReading
	if err := c.get(ctx, "/index", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
