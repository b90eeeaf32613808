package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/service"
	"github.com/zappabad/dealsviewer/internal/deal/view"
)

type fakeDeals struct {
	mu      sync.Mutex
	page    *view.Page
	events  chan service.Event
	sorts   []deal.SortState
	scrolls []service.ScrollRequest
	err     error

	accumulated int
}

func newFakeDeals() *fakeDeals {
	w := view.NewWindow(view.DefaultWindowConfig())
	return &fakeDeals{
		page:   view.NewPage(w, deal.DefaultSortState(), 0, false),
		events: make(chan service.Event, 8),
	}
}

func (f *fakeDeals) RequestSort(_ context.Context, k deal.SortKey, desc bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sorts = append(f.sorts, deal.SortState{Key: k, Descending: desc})
	return f.err
}

func (f *fakeDeals) ScrollChanged(_ context.Context, req service.ScrollRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, req)
	return f.err
}

func (f *fakeDeals) Current() *view.Page          { return f.page }
func (f *fakeDeals) Events() <-chan service.Event { return f.events }
func (f *fakeDeals) Accumulated() int             { return f.accumulated }

func makePage(n, total int, st deal.SortState, gen uint64) *view.Page {
	deals := make([]deal.Deal, total)
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	for i := range deals {
		deals[i] = deal.Deal{ID: fmt.Sprint(i), InstrumentName: "AAPL", Price: float64(i), Amount: 1, ModifiedAt: at}
	}
	w := view.NewWindow(view.WindowConfig{PageSize: n})
	w.Reset(deals)
	return view.NewPage(w, st, gen, true)
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(t *testing.T, deals DealService) *Model {
	t.Helper()
	m := NewModel(deals)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModelShowsLoaderUntilFirstWindow(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	assert.True(t, m.panel.Loading())

	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, deal.DefaultSortState(), 1)})

	assert.False(t, m.panel.Loading())
	assert.Equal(t, 100, m.panel.Page().Rows())
	assert.Contains(t, m.View(), "live")
}

func TestModelSortKeyTogglesAndRequests(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, deal.DefaultSortState(), 1)})

	_, cmd := m.Update(keyPress("2"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.True(t, m.panel.Loading())

	_, cmd = m.Update(keyPress("2"))
	cmd()

	want := deal.SortState{Key: deal.SortByPrice, Descending: true}
	assert.Equal(t, []deal.SortState{{Key: deal.SortByPrice}, want}, f.sorts)
	assert.Equal(t, want, m.requested)

	// a superseded state does not end loading
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, deal.SortState{Key: deal.SortByPrice}, 2)})
	assert.True(t, m.panel.Loading())

	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, want, 3)})
	assert.False(t, m.panel.Loading())
	assert.Equal(t, 0, m.panel.YOffset())
}

func TestModelScrollReportsPosition(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	page := makePage(100, 250, deal.DefaultSortState(), 1)
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: page})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	require.NotNil(t, cmd)
	runBatch(cmd)

	require.NotEmpty(t, f.scrolls)
	req := f.scrolls[len(f.scrolls)-1]
	assert.Equal(t, uint64(1), req.Generation)
	assert.Equal(t, 100, req.Rows)
	assert.Greater(t, req.Fraction, 0.0)
	assert.Less(t, req.Fraction, 1.0)
}

func TestModelShortWindowKeepsGrowing(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)

	// 5 rows fit on screen with more behind them
	_, cmd := m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(5, 50, deal.DefaultSortState(), 1)})
	close(f.events)
	runBatch(cmd)

	require.Len(t, f.scrolls, 1)
	assert.Equal(t, 1.0, f.scrolls[0].Fraction)
	assert.Equal(t, 5, f.scrolls[0].Rows)
}

func TestModelRequestError(t *testing.T) {
	f := newFakeDeals()
	f.err = service.ErrClosed
	m := sized(t, f)

	_, cmd := m.Update(keyPress("1"))
	msg := cmd()
	require.IsType(t, requestErrMsg{}, msg)

	m.Update(msg)
	assert.Contains(t, m.statusMsg, "service closed")
}

func TestModelFailedSortRestoresHeader(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, deal.DefaultSortState(), 1)})

	f.err = context.DeadlineExceeded
	_, cmd := m.Update(keyPress("2"))
	assert.True(t, m.panel.Loading())
	m.Update(cmd())

	assert.Equal(t, deal.DefaultSortState(), m.requested)
	assert.False(t, m.panel.Loading())
	assert.Contains(t, m.panel.View(), "Date ▲")
	assert.Contains(t, m.panel.View(), "Price ·")

	// scrolling works again
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	f.err = nil
	runBatch(cmd)
	require.NotEmpty(t, f.scrolls)
}

func TestModelStaleSortErrorKeepsNewerRequest(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 250, deal.DefaultSortState(), 1)})

	_, failed := m.Update(keyPress("2"))
	_, _ = m.Update(keyPress("3"))

	f.err = context.DeadlineExceeded
	m.Update(failed())

	assert.Equal(t, deal.SortState{Key: deal.SortByAmount}, m.requested)
	assert.True(t, m.panel.Loading())
}

func TestModelPicksUpDealsBehindEmptyWindow(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	m.Update(dealsEventMsg{Kind: service.EventWindowReset, Page: makePage(100, 0, deal.DefaultSortState(), 1)})
	assert.Nil(t, m.fillScreen())

	f.accumulated = 150
	cmd := m.fillScreen()
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, f.scrolls, 1)
	assert.Equal(t, service.ScrollRequest{Generation: 1, Rows: 0, Fraction: 1}, f.scrolls[0])
}

func TestModelNoResortServiceFillsEmptyWindow(t *testing.T) {
	cfg := service.DefaultConfig()
	cfg.ResortOnBatch = false
	svc := service.NewService(cfg, zap.NewNop(), nil)
	defer svc.Close()
	m := sized(t, svc)

	m.Update(m.listenDealEvents()())
	require.Equal(t, 0, m.panel.Page().Rows())

	svc.DealsReceived([]deal.Deal{{ID: "a", InstrumentName: "AAA"}, {ID: "b", InstrumentName: "BBB"}})
	cmd := m.fillScreen()
	require.NotNil(t, cmd)
	require.Nil(t, cmd())

	m.Update(m.listenDealEvents()())
	assert.Equal(t, 2, m.panel.Page().Rows())
}

func TestModelEventsClosed(t *testing.T) {
	f := newFakeDeals()
	m := sized(t, f)
	close(f.events)

	msg := m.listenDealEvents()()
	assert.IsType(t, eventsClosedMsg{}, msg)
	m.Update(msg)
	assert.Contains(t, m.View(), "stopped")
}

func TestModelWithService(t *testing.T) {
	svc := service.NewService(service.DefaultConfig(), zap.NewNop(), nil)
	defer svc.Close()
	m := sized(t, svc)

	svc.DealsReceived([]deal.Deal{
		{ID: "a", InstrumentName: "AAA", Price: 10},
		{ID: "b", InstrumentName: "BBB", Price: 5},
	})
	_, cmd := m.Update(keyPress("2"))
	require.Nil(t, cmd())

	require.Eventually(t, func() bool {
		msg := m.listenDealEvents()()
		m.Update(msg)
		return !m.panel.Loading()
	}, 2*time.Second, time.Millisecond)

	first, _ := m.panel.Page().Row(0)
	assert.Equal(t, "BBB", first.InstrumentName)
}

// runBatch executes cmd and any commands it batches.
func runBatch(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			runBatch(c)
		}
	}
}

func TestModelFeedStopped(t *testing.T) {
	m := sized(t, newFakeDeals())
	m.Update(FeedStoppedMsg{Err: errors.New("dial feed: refused")})
	assert.Equal(t, "feed: dial feed: refused", m.statusMsg)
}
