package view

import "github.com/zappabad/dealsviewer/internal/deal"

// WindowConfig controls how the visible window grows.
type WindowConfig struct {
	// PageSize is the number of rows added per growth step.
	PageSize int
	// GrowThreshold is the scroll fraction past which the window grows.
	GrowThreshold float64
	// PartialPage allows the final step to add fewer than PageSize rows.
	// When false, growth stops once a full page no longer fits.
	PartialPage bool
}

// DefaultWindowConfig returns a WindowConfig with reasonable defaults.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		PageSize:      100,
		GrowThreshold: 1 / 1.5,
		PartialPage:   true,
	}
}

// Window is the visible prefix of a sorted view. It only ever holds a
// length; rows are read from the sorted slice it was last reset or rebased
// onto.
type Window struct {
	cfg    WindowConfig
	sorted []deal.Deal
	n      int
}

// NewWindow creates an empty Window.
func NewWindow(cfg WindowConfig) *Window {
	def := DefaultWindowConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.GrowThreshold <= 0 || cfg.GrowThreshold >= 1 {
		cfg.GrowThreshold = def.GrowThreshold
	}
	return &Window{cfg: cfg}
}

// Reset points the window at sorted and shrinks it to the first page.
func (w *Window) Reset(sorted []deal.Deal) {
	w.sorted = sorted
	w.n = min(w.cfg.PageSize, len(sorted))
}

// Rebase points the window at a re-derived sorted view under the same sort
// state, keeping the current length where possible.
func (w *Window) Rebase(sorted []deal.Deal) {
	w.sorted = sorted
	n := max(w.n, min(w.cfg.PageSize, len(sorted)))
	w.n = min(n, len(sorted))
}

// Grow appends the next page when fraction is past the threshold. It
// returns false when nothing was added.
func (w *Window) Grow(fraction float64) bool {
	if fraction <= w.cfg.GrowThreshold {
		return false
	}
	return w.growPage()
}

func (w *Window) growPage() bool {
	next := w.n + w.cfg.PageSize
	if next > len(w.sorted) {
		if !w.cfg.PartialPage || w.n >= len(w.sorted) {
			return false
		}
		next = len(w.sorted)
	}
	w.n = next
	return true
}

// Len returns the number of visible rows.
func (w *Window) Len() int {
	return w.n
}

// Total returns the length of the sorted view behind the window.
func (w *Window) Total() int {
	return len(w.sorted)
}

// Deals returns the visible rows. The slice must be treated as read-only.
func (w *Window) Deals() []deal.Deal {
	return w.sorted[:w.n:w.n]
}

// Threshold returns the configured grow threshold.
func (w *Window) Threshold() float64 {
	return w.cfg.GrowThreshold
}
