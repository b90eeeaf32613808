package panels

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/view"
)

func TestFormatting(t *testing.T) {
	assert.Equal(t, "175.25", FormatPrice(175.25))
	assert.Equal(t, "0.10", FormatPrice(0.1))
	assert.Equal(t, "3.00", FormatPrice(2.999))
	assert.Equal(t, "120", FormatAmount(120.4))
	assert.Equal(t, "121", FormatAmount(120.5))
	assert.Equal(t, "sell", FormatSide(deal.SideSell))

	at := time.Date(2026, 10, 19, 15, 4, 5, 0, time.Local)
	assert.Equal(t, "2026-10-19 03:04:05", FormatDate(at))
}

func TestIndicator(t *testing.T) {
	assert.Equal(t, "▲", Indicator(deal.Ascending))
	assert.Equal(t, "▼", Indicator(deal.Descending))
	assert.Equal(t, "·", Indicator(deal.Unordered))
}

func TestHeaderShowsActiveColumn(t *testing.T) {
	p := NewDealsPanel()
	p.SetHeader(deal.SortState{Key: deal.SortByPrice, Descending: true})

	header := p.renderHeader()
	assert.Contains(t, header, "Price ▼")
	assert.Contains(t, header, "Instrument ·")
	assert.Contains(t, header, "Date ·")
}

func pageOf(n int) *view.Page {
	deals := make([]deal.Deal, n)
	for i := range deals {
		deals[i] = deal.Deal{InstrumentName: "MSFT", Price: float64(i), Amount: 1}
	}
	w := view.NewWindow(view.DefaultWindowConfig())
	w.Reset(deals)
	return view.NewPage(w, deal.DefaultSortState(), 1, false)
}

func TestSetPageKeepsOrResetsScroll(t *testing.T) {
	p := NewDealsPanel()
	p.SetSize(80, 24)
	p.SetPage(pageOf(100), true)
	assert.Equal(t, 0.0, p.ScrollFraction())

	p.viewport.SetYOffset(50)
	require.Equal(t, 50, p.YOffset())
	assert.InDelta(t, 0.5, p.ScrollFraction(), 1e-9)

	p.SetPage(pageOf(200), false)
	assert.Equal(t, 50, p.YOffset())

	p.SetPage(pageOf(200), true)
	assert.Equal(t, 0, p.YOffset())
}

func TestScrollFractionAtBottom(t *testing.T) {
	p := NewDealsPanel()
	p.SetSize(80, 24)
	p.SetPage(pageOf(3), true)
	assert.Equal(t, 1.0, p.ScrollFraction())

	p.SetPage(pageOf(0), true)
	assert.Equal(t, 0.0, p.ScrollFraction())
}

func TestViewStates(t *testing.T) {
	p := NewDealsPanel()
	p.SetSize(80, 24)
	assert.Contains(t, p.View(), "No deals yet")

	p.SetPage(pageOf(3), true)
	view := p.View()
	assert.Contains(t, view, "Deals 3/3")
	assert.Equal(t, 3, strings.Count(view, "MSFT"))

	p.SetLoading(true)
	assert.Contains(t, p.View(), "sorting by date asc")
	assert.NotContains(t, p.View(), "MSFT")
}
