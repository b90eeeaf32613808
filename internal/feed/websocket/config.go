package websocket

import "time"

// ClientConfig holds configuration for the websocket feed client.
type ClientConfig struct {
	// URL is the feed endpoint, e.g. ws://localhost:8090/deals.
	URL string
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// ReadLimit is the maximum accepted frame size in bytes.
	ReadLimit int64
}

// DefaultClientConfig returns a ClientConfig with reasonable defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:              "ws://localhost:8090/deals",
		HandshakeTimeout: 10 * time.Second,
		ReadLimit:        4 << 20,
	}
}

// ServerConfig holds configuration for the broadcasting feed server.
type ServerConfig struct {
	// SendBuffer is the number of frames queued per client. A client that
	// falls further behind is disconnected.
	SendBuffer int
	// HistoryBatch is the number of deals per history frame sent on connect.
	HistoryBatch int
	// WriteWait bounds a single frame write.
	WriteWait time.Duration
	// PingPeriod is the interval between keepalive pings. It must be shorter
	// than PongWait.
	PingPeriod time.Duration
	// PongWait is how long a client may stay silent before it is dropped.
	PongWait time.Duration
}

// DefaultServerConfig returns a ServerConfig with reasonable defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		SendBuffer:   256,
		HistoryBatch: 500,
		WriteWait:    5 * time.Second,
		PingPeriod:   30 * time.Second,
		PongWait:     60 * time.Second,
	}
}
