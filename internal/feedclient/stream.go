package feedclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockexchange/internal/feed"
)

// ErrStreamClosed is returned by Stream when the server ends the stream.
var ErrStreamClosed = errors.New("feed stream closed by server")

// Stream dials the board stream and calls fn for every board until ctx is
// done, fn returns an error or the server closes the connection. A nil error
// is never returned: ctx.Err(), fn's error or ErrStreamClosed tell the caller
// why it stopped.
func (c *Client) Stream(ctx context.Context, fn func(feed.Board) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	conn, _, err := dialer.DialContext(ctx, c.streamURL(), header)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	c.logger.Debug("feed stream connected", "url", c.streamURL())

	// Unblock ReadJSON when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		var board feed.Board
		if err := conn.ReadJSON(&board); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if err := fn(board); err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return err
		}
	}
}

func (c *Client) streamURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
