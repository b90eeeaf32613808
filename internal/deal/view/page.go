package view

import "github.com/zappabad/dealsviewer/internal/deal"

// Page is an immutable snapshot of the visible window, handed to the
// presentation layer. It is safe to share across goroutines.
type Page struct {
	// Generation increments every time the sort state changes and the
	// window is reset. Scroll requests carry it back to detect staleness.
	Generation uint64
	State      deal.SortState
	// Total is the length of the sorted view the window is a prefix of.
	Total int
	// Loaded reports whether the feed signalled its initial load.
	Loaded bool

	deals []deal.Deal
}

// NewPage snapshots w under st.
func NewPage(w *Window, st deal.SortState, generation uint64, loaded bool) *Page {
	return &Page{
		Generation: generation,
		State:      st,
		Total:      w.Total(),
		Loaded:     loaded,
		deals:      w.Deals(),
	}
}

// Rows returns the number of visible rows.
func (p *Page) Rows() int {
	if p == nil {
		return 0
	}
	return len(p.deals)
}

// Row returns the deal at index i.
func (p *Page) Row(i int) (deal.Deal, bool) {
	if p == nil || i < 0 || i >= len(p.deals) {
		return deal.Deal{}, false
	}
	return p.deals[i], true
}

// Deals returns the visible rows. The slice must be treated as read-only.
func (p *Page) Deals() []deal.Deal {
	if p == nil {
		return nil
	}
	return p.deals
}

// Header returns the indicator for column k.
func (p *Page) Header(k deal.SortKey) deal.Indicator {
	if p == nil {
		return deal.Unordered
	}
	return p.State.Indicator(k)
}

// HasMore reports whether rows remain beyond the window.
func (p *Page) HasMore() bool {
	return p != nil && len(p.deals) < p.Total
}
