package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/view"
	"github.com/zappabad/dealsviewer/internal/feed"
)

// Clients only send control frames.
const maxClientMessage = 512

// Server broadcasts the deals of an upstream feed.Source to websocket
// clients. A client first receives the history in batches, then the loaded
// marker once the upstream signalled it, then every live batch.
type Server struct {
	cfg      ServerConfig
	logger   *zap.Logger
	upgrader ws.Upgrader
	history  *view.Accumulator

	mu      sync.Mutex
	clients map[*client]struct{}
	loaded  bool
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a Server with no upstream attached.
func NewServer(cfg ServerConfig, logger *zap.Logger) *Server {
	def := DefaultServerConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.HistoryBatch <= 0 {
		cfg.HistoryBatch = def.HistoryBatch
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = def.PingPeriod
	}
	if cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: ws.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		history: view.NewAccumulator(4096),
		clients: make(map[*client]struct{}),
	}
}

// Run subscribes to src and broadcasts until ctx is canceled.
func (s *Server) Run(ctx context.Context, src feed.Source) error {
	return src.Subscribe(ctx, s.publish, s.markLoaded)
}

func (s *Server) publish(batch []deal.Deal) {
	frame, err := feed.Encode(feed.BatchEnvelope(batch))
	if err != nil {
		s.logger.Error("encode batch", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(batch)
	s.broadcastLocked(frame)
}

func (s *Server) markLoaded() {
	frame, _ := feed.Encode(feed.LoadedEnvelope())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.logger.Info("upstream history loaded", zap.Int("deals", s.history.Len()))
	s.broadcastLocked(frame)
}

func (s *Server) broadcastLocked(frame []byte) {
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			// clients must not see gaps, so the client goes instead of the frame
			s.logger.Warn("slow client disconnected", zap.String("client", c.id))
			delete(s.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the request and registers the client.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	history := s.history.Snapshot()
	loaded := s.loaded
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	initial, err := s.historyFrames(history, loaded)
	if err != nil {
		s.logger.Error("encode history", zap.Error(err))
		s.unregister(c)
		return
	}

	s.logger.Info("client connected",
		zap.String("client", c.id),
		zap.String("remote", r.RemoteAddr),
		zap.Int("history", len(history)))

	go s.writePump(c, initial)
	go s.readPump(c)
}

func (s *Server) historyFrames(history []deal.Deal, loaded bool) ([][]byte, error) {
	var frames [][]byte
	for start := 0; start < len(history); start += s.cfg.HistoryBatch {
		end := min(start+s.cfg.HistoryBatch, len(history))
		frame, err := feed.Encode(feed.BatchEnvelope(history[start:end]))
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if loaded {
		frame, err := feed.Encode(feed.LoadedEnvelope())
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (s *Server) writePump(c *client, initial [][]byte) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(frame []byte) bool {
		c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
		return c.conn.WriteMessage(ws.TextMessage, frame) == nil
	}

	for _, frame := range initial {
		if !write(frame) {
			s.unregister(c)
			return
		}
	}

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, ""))
			return
		case frame := <-c.send:
			if !write(frame) {
				s.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				s.unregister(c)
				return
			}
		}
	}
}

// readPump drains control frames and notices disconnects. A peer that stops
// answering pings hits the read deadline.
func (s *Server) readPump(c *client) {
	defer s.unregister(c)

	c.conn.SetReadLimit(maxClientMessage)
	c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.logger.Debug("client read ended", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	c.close()
	if ok {
		s.logger.Info("client disconnected", zap.String("client", c.id))
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Delivered returns the number of deals received from the upstream.
func (s *Server) Delivered() int {
	return s.history.Len()
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		c.close()
	}
}

type client struct {
	id   string
	conn *ws.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
