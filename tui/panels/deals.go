package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/view"
	"github.com/zappabad/dealsviewer/tui/styles"
)

type column struct {
	key   deal.SortKey
	title string
	width int
	right bool
}

// Columns in key order; the sort shortcut of column i is i+1.
var columns = []column{
	{key: deal.SortByInstrument, title: "Instrument", width: 14},
	{key: deal.SortByPrice, title: "Price", width: 12, right: true},
	{key: deal.SortByAmount, title: "Amount", width: 10, right: true},
	{key: deal.SortBySide, title: "Side", width: 8},
	{key: deal.SortByDate, title: "Date", width: 21},
}

// DealsPanel displays the published window of deals.
type DealsPanel struct {
	page     *view.Page
	header   deal.SortState
	loading  bool
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
}

// NewDealsPanel creates a new deals panel.
func NewDealsPanel() *DealsPanel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	return &DealsPanel{
		header:   deal.DefaultSortState(),
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Init initializes the panel.
func (p *DealsPanel) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update handles messages for the panel. Scrolling is ignored while a
// resort is loading.
func (p *DealsPanel) Update(msg tea.Msg) (*DealsPanel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case spinner.TickMsg:
		p.spinner, cmd = p.spinner.Update(msg)
	default:
		if !p.loading {
			p.viewport, cmd = p.viewport.Update(msg)
		}
	}
	return p, cmd
}

// View renders the panel.
func (p *DealsPanel) View() string {
	var body string
	switch {
	case p.loading:
		body = lipgloss.Place(p.viewport.Width, p.viewport.Height, lipgloss.Center, lipgloss.Center,
			p.spinner.View()+" sorting by "+p.header.String())
	case p.page.Rows() == 0:
		body = styles.MutedStyle.Render("No deals yet")
	default:
		body = p.viewport.View()
	}

	title := "Deals"
	if p.page != nil {
		title = fmt.Sprintf("Deals %d/%d", p.page.Rows(), p.page.Total)
	}

	panel := lipgloss.JoinVertical(lipgloss.Left,
		styles.RenderTitle(title),
		p.renderHeader(),
		body,
	)
	return styles.PanelStyle.Width(max(p.width-2, 0)).Height(max(p.height-2, 0)).Render(panel)
}

func (p *DealsPanel) renderHeader() string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		label := fmt.Sprintf("%d %s %s", i+1, c.title, Indicator(p.header.Indicator(c.key)))
		cell := pad(label, c.width, c.right)
		if c.key == p.header.Key {
			cells[i] = styles.ActiveHeaderStyle.Render(cell)
		} else {
			cells[i] = styles.HeaderStyle.Render(cell)
		}
	}
	return strings.Join(cells, " ")
}

func renderRow(d deal.Deal) string {
	cells := []string{
		styles.RowStyle.Render(pad(d.InstrumentName, columns[0].width, false)),
		sideStyle(d.Side).Render(pad(FormatPrice(d.Price), columns[1].width, true)),
		styles.SizeStyle.Render(pad(FormatAmount(d.Amount), columns[2].width, true)),
		styles.RowStyle.Render(pad(FormatSide(d.Side), columns[3].width, false)),
		styles.TimeStyle.Render(pad(FormatDate(d.ModifiedAt), columns[4].width, false)),
	}
	return strings.Join(cells, " ")
}

func pad(s string, width int, right bool) string {
	if r := []rune(s); len(r) > width {
		return string(r[:width])
	}
	if right {
		return fmt.Sprintf("%*s", width, s)
	}
	return fmt.Sprintf("%-*s", width, s)
}

// SetPage replaces the rendered rows. The scroll position is kept unless
// scrollToTop is set.
func (p *DealsPanel) SetPage(page *view.Page, scrollToTop bool) {
	p.page = page
	lines := make([]string, page.Rows())
	for i, d := range page.Deals() {
		lines[i] = renderRow(d)
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
	if scrollToTop {
		p.viewport.GotoTop()
	}
}

// Page returns the page on screen.
func (p *DealsPanel) Page() *view.Page {
	return p.page
}

// SetHeader sets the sort state shown in the header.
func (p *DealsPanel) SetHeader(st deal.SortState) {
	p.header = st
}

// SetLoading shows or hides the loader in place of the rows.
func (p *DealsPanel) SetLoading(loading bool) {
	p.loading = loading
}

// Loading reports whether the loader is shown.
func (p *DealsPanel) Loading() bool {
	return p.loading
}

// SetSize sets the panel dimensions.
func (p *DealsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	// border, padding, title and header
	p.viewport.Width = max(width-4, 0)
	p.viewport.Height = max(height-4, 1)
}

// YOffset returns the first visible row.
func (p *DealsPanel) YOffset() int {
	return p.viewport.YOffset
}

// ScrollFraction is the scroll offset relative to the rendered content
// height. Reaching the last row counts as fully scrolled.
func (p *DealsPanel) ScrollFraction() float64 {
	total := p.page.Rows()
	if total == 0 {
		return 0
	}
	if p.viewport.AtBottom() {
		return 1
	}
	return float64(p.viewport.YOffset) / float64(total)
}
