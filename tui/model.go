package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/service"
	"github.com/zappabad/dealsviewer/internal/deal/view"
	"github.com/zappabad/dealsviewer/tui/panels"
	"github.com/zappabad/dealsviewer/tui/styles"
)

// DealService is what the model needs from the deal service.
type DealService interface {
	RequestSort(ctx context.Context, key deal.SortKey, descending bool) error
	ScrollChanged(ctx context.Context, req service.ScrollRequest) error
	Current() *view.Page
	Events() <-chan service.Event
	Accumulated() int
}

const (
	// requestTimeout bounds a single call into the service.
	requestTimeout = 2 * time.Second
	// refreshInterval paces the status bar and the screen fill check.
	refreshInterval = 500 * time.Millisecond
)

// Model is the main TUI application model.
type Model struct {
	deals DealService

	panel *panels.DealsPanel
	keys  keyMap
	help  help.Model

	// requested is the sort state the user last asked for; the header shows
	// it before the service publishes it.
	requested  deal.SortState
	lastOffset int

	// Window dimensions
	width  int
	height int

	// Status
	loaded    bool
	stopped   bool
	statusMsg string
	ready     bool
}

// NewModel creates a new TUI model. The loader is shown until the service
// publishes its first window.
func NewModel(deals DealService) *Model {
	page := deals.Current()

	panel := panels.NewDealsPanel()
	panel.SetHeader(page.State)
	panel.SetPage(page, true)
	panel.SetLoading(page.Generation == 0)

	return &Model{
		deals:     deals,
		panel:     panel,
		keys:      defaultKeyMap(),
		help:      help.New(),
		requested: page.State,
		loaded:    page.Loaded,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.panel.Init(),
		m.listenDealEvents(),
		refreshTick(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		}
		if k, ok := m.keys.sortKey(msg); ok {
			return m, m.requestSort(k)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.ready = true

	case dealsEventMsg:
		if cmd := m.applyEvent(service.Event(msg)); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.listenDealEvents())

	case refreshMsg:
		if cmd := m.fillScreen(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, refreshTick())

	case eventsClosedMsg:
		m.stopped = true
		m.panel.SetLoading(false)

	case requestErrMsg:
		m.statusMsg = msg.err.Error()
		if msg.sort && msg.state == m.requested {
			m.restoreHeader()
		}

	case FeedStoppedMsg:
		if msg.Err != nil {
			m.statusMsg = "feed: " + msg.Err.Error()
		}
	}

	var cmd tea.Cmd
	m.panel, cmd = m.panel.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if off := m.panel.YOffset(); off != m.lastOffset {
		m.lastOffset = off
		cmds = append(cmds, m.reportScroll(m.panel.ScrollFraction()))
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.panel.View(), m.renderStatusBar())
}

func (m *Model) resize() {
	m.panel.SetSize(m.width, m.height-lipgloss.Height(m.renderStatusBar()))
}

func (m *Model) renderStatusBar() string {
	var state string
	switch {
	case m.stopped:
		state = styles.StatusErrorStyle.Render("■ stopped")
	case m.loaded:
		state = styles.StatusLiveStyle.Render("● live")
	default:
		state = styles.StatusLoadingStyle.Render("◌ loading history")
	}

	info := fmt.Sprintf(" │ %d deals │ %s", m.deals.Accumulated(), m.requested)
	if m.statusMsg != "" {
		info += " │ " + styles.StatusErrorStyle.Render(m.statusMsg)
	}

	return styles.StatusBarStyle.Width(m.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, state+styles.StatusBarDescStyle.Render(info), m.help.View(m.keys)),
	)
}

// applyEvent renders a published page and asks for more rows when the
// screen is not full yet.
func (m *Model) applyEvent(ev service.Event) tea.Cmd {
	page := ev.Page
	m.loaded = page.Loaded

	if ev.Kind == service.EventWindowReset && page.State == m.requested {
		m.panel.SetLoading(false)
		m.statusMsg = ""
	}
	m.panel.SetPage(page, ev.ScrollToTop())
	m.lastOffset = m.panel.YOffset()

	return m.fillScreen()
}

// fillScreen reports a fully scrolled position while the window ends on
// screen and either rows remain behind it or deals arrived that the published
// page does not cover yet. The latter keeps an empty first window growing
// when the service does not resort on arrival.
func (m *Model) fillScreen() tea.Cmd {
	page := m.panel.Page()
	if page == nil {
		return nil
	}
	if page.Rows() > 0 && m.panel.ScrollFraction() < 1 {
		return nil
	}
	if !page.HasMore() && m.deals.Accumulated() <= page.Total {
		return nil
	}
	return m.reportScroll(1)
}

func (m *Model) requestSort(k deal.SortKey) tea.Cmd {
	m.requested = m.requested.Toggle(k)
	m.panel.SetHeader(m.requested)
	m.panel.SetLoading(true)

	st := m.requested
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.deals.RequestSort(ctx, st.Key, st.Descending); err != nil {
			return requestErrMsg{err: fmt.Errorf("sort by %s: %w", st, err), sort: true, state: st}
		}
		return nil
	}
}

// restoreHeader drops a sort request the service never accepted and shows
// the published state again.
func (m *Model) restoreHeader() {
	if page := m.panel.Page(); page != nil {
		m.requested = page.State
	}
	m.panel.SetHeader(m.requested)
	m.panel.SetLoading(false)
}

func (m *Model) reportScroll(fraction float64) tea.Cmd {
	page := m.panel.Page()
	if page == nil || m.panel.Loading() {
		return nil
	}

	req := service.ScrollRequest{
		Generation: page.Generation,
		Rows:       page.Rows(),
		Fraction:   fraction,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.deals.ScrollChanged(ctx, req); err != nil {
			return requestErrMsg{err: fmt.Errorf("load more: %w", err)}
		}
		return nil
	}
}

func (m *Model) listenDealEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.deals.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return dealsEventMsg(ev)
	}
}

// dealsEventMsg carries a published window.
type dealsEventMsg service.Event

// refreshMsg drives the periodic status and fill check.
type refreshMsg struct{}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// eventsClosedMsg is sent once the deal service has shut down.
type eventsClosedMsg struct{}

// FeedStoppedMsg reports the end of the deal subscription.
type FeedStoppedMsg struct {
	Err error
}

// requestErrMsg is sent when a call into the deal service fails.
type requestErrMsg struct {
	err error
	// sort is set for a failed sort request for state.
	sort  bool
	state deal.SortState
}
