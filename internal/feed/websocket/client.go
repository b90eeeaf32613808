// Package websocket carries deal envelopes over websocket connections.
package websocket

import (
	"context"
	"fmt"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/feed"
)

// Client is a feed.Source reading envelopes from a feed server. It does not
// reconnect; Subscribe returns the transport error instead.
type Client struct {
	cfg    ClientConfig
	logger *zap.Logger
}

var _ feed.Source = (*Client)(nil)

// NewClient creates a Client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	def := DefaultClientConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Subscribe dials the feed and dispatches frames until ctx is canceled or the
// connection fails. Malformed frames are logged and skipped.
func (c *Client) Subscribe(ctx context.Context, onBatch feed.BatchFunc, onLoaded feed.LoadedFunc) error {
	dialer := ws.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial feed %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()
	conn.SetReadLimit(c.cfg.ReadLimit)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Info("feed connected", zap.String("url", c.cfg.URL))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.logger.Info("feed disconnected", zap.String("url", c.cfg.URL))
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if err := feed.Dispatch(msg, onBatch, onLoaded); err != nil {
			c.logger.Error("feed frame skipped", zap.Error(err))
		}
	}
}
