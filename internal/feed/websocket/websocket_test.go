package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/feed"
)

// httpToWS converts an httptest URL to a websocket URL.
func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func testDeals(prefix string, n int) []deal.Deal {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	out := make([]deal.Deal, n)
	for i := range out {
		out[i] = deal.Deal{
			ID:             prefix + string(rune('a'+i%26)),
			InstrumentName: "AAPL",
			Price:          float64(100 + i),
			Amount:         float64(i + 1),
			Side:           deal.Side(i % 2),
			ModifiedAt:     at.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

type collector struct {
	mu       sync.Mutex
	deals    []deal.Deal
	batches  int
	loadedAt int
}

func newCollector() *collector { return &collector{loadedAt: -1} }

func (c *collector) onBatch(b []deal.Deal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deals = append(c.deals, b...)
	c.batches++
}

func (c *collector) onLoaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = len(c.deals)
}

func (c *collector) state() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deals), c.loadedAt
}

// scriptedSource delivers the history, signals loaded and then forwards live
// batches until ctx is canceled.
type scriptedSource struct {
	history []deal.Deal
	live    chan []deal.Deal
}

func (s *scriptedSource) Subscribe(ctx context.Context, onBatch feed.BatchFunc, onLoaded feed.LoadedFunc) error {
	onBatch(s.history)
	onLoaded()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-s.live:
			onBatch(b)
		}
	}
}

func startServer(t *testing.T, cfg ServerConfig, src feed.Source) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx, src)
	}()

	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
		hs.Close()
	})
	return srv, hs
}

func subscribe(t *testing.T, url string, c *collector) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(ClientConfig{URL: url}, zap.NewNop())

	errCh := make(chan error, 1)
	go func() { errCh <- client.Subscribe(ctx, c.onBatch, c.onLoaded) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("subscribe did not return after cancel")
		}
	})
	return cancel
}

func TestClientReceivesHistoryLoadedAndLive(t *testing.T) {
	src := &scriptedSource{history: testDeals("h", 12), live: make(chan []deal.Deal)}
	srv, hs := startServer(t, ServerConfig{HistoryBatch: 5}, src)

	require.Eventually(t, func() bool { return srv.Delivered() == 12 }, time.Second, 5*time.Millisecond)

	c := newCollector()
	subscribe(t, httpToWS(hs.URL), c)

	require.Eventually(t, func() bool {
		n, loaded := c.state()
		return n == 12 && loaded == 12
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	src.live <- testDeals("l", 3)

	require.Eventually(t, func() bool {
		n, _ := c.state()
		return n == 15
	}, 2*time.Second, 5*time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 4, c.batches, "three history frames and one live frame")
	assert.Equal(t, "ha", c.deals[0].ID)
	assert.Equal(t, "la", c.deals[12].ID)
}

func TestClientSkipsMalformedFrames(t *testing.T) {
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		good, _ := feed.Encode(feed.BatchEnvelope(testDeals("g", 2)))
		loaded, _ := feed.Encode(feed.LoadedEnvelope())
		conn.WriteMessage(ws.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteMessage(ws.TextMessage, good)
		conn.WriteMessage(ws.TextMessage, loaded)
		conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	defer hs.Close()

	c := newCollector()
	client := NewClient(ClientConfig{URL: httpToWS(hs.URL)}, zap.NewNop())

	err := client.Subscribe(context.Background(), c.onBatch, c.onLoaded)
	require.NoError(t, err)

	n, loaded := c.state()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, loaded)
}

func TestClientDialError(t *testing.T) {
	hs := httptest.NewServer(http.NotFoundHandler())
	defer hs.Close()

	client := NewClient(ClientConfig{URL: httpToWS(hs.URL)}, nil)
	err := client.Subscribe(context.Background(), func([]deal.Deal) {}, nil)
	assert.Error(t, err)
}

func TestServerCloseDisconnectsClients(t *testing.T) {
	src := &scriptedSource{live: make(chan []deal.Deal)}
	srv, hs := startServer(t, ServerConfig{}, src)

	c := newCollector()
	client := NewClient(ClientConfig{URL: httpToWS(hs.URL)}, zap.NewNop())
	errCh := make(chan error, 1)
	go func() { errCh <- client.Subscribe(context.Background(), c.onBatch, c.onLoaded) }()

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)
	srv.Close()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client still connected")
	}
	assert.Zero(t, srv.Clients())
}

func TestServerDropsSilentPeer(t *testing.T) {
	src := &scriptedSource{live: make(chan []deal.Deal)}
	srv, hs := startServer(t, ServerConfig{PingPeriod: 20 * time.Millisecond, PongWait: 100 * time.Millisecond}, src)

	// a raw connection that never reads cannot answer pings
	conn, _, err := ws.DefaultDialer.Dial(httpToWS(hs.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return srv.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServerKeepsResponsivePeer(t *testing.T) {
	src := &scriptedSource{live: make(chan []deal.Deal)}
	srv, hs := startServer(t, ServerConfig{PingPeriod: 20 * time.Millisecond, PongWait: 100 * time.Millisecond}, src)

	c := newCollector()
	subscribe(t, httpToWS(hs.URL), c)

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, srv.Clients())

	_, loaded := c.state()
	assert.Equal(t, 0, loaded)
}

func TestServerConfigDefaults(t *testing.T) {
	srv := NewServer(ServerConfig{PingPeriod: time.Minute, PongWait: 10 * time.Second}, nil)
	assert.Equal(t, 10*time.Second, srv.cfg.PongWait)
	assert.Less(t, srv.cfg.PingPeriod, srv.cfg.PongWait)

	def := NewServer(ServerConfig{}, nil)
	assert.Equal(t, DefaultServerConfig(), def.cfg)
}
