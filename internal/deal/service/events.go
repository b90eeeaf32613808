package service

import "github.com/zappabad/dealsviewer/internal/deal/view"

// EventKind identifies why the window changed.
type EventKind uint8

const (
	// EventWindowReset follows a sort state change. The presentation must
	// reload and scroll to the top.
	EventWindowReset EventKind = iota
	// EventWindowRefreshed follows new deals under the same sort state.
	EventWindowRefreshed
	// EventWindowGrown follows a scroll-triggered growth step.
	EventWindowGrown
	// EventInitialLoad follows the feed's initial load signal.
	EventInitialLoad
)

func (k EventKind) String() string {
	switch k {
	case EventWindowReset:
		return "reset"
	case EventWindowRefreshed:
		return "refreshed"
	case EventWindowGrown:
		return "grown"
	case EventInitialLoad:
		return "initial_load"
	default:
		return "unknown"
	}
}

// Event is emitted whenever the published page changes.
type Event struct {
	Kind EventKind
	Page *view.Page
}

// ScrollToTop reports whether the presentation should jump to the first row.
func (e Event) ScrollToTop() bool {
	return e.Kind == EventWindowReset
}

// ScrollRequest reports the scroll position of a rendered page.
type ScrollRequest struct {
	// Generation and Rows identify the page that was on screen.
	Generation uint64
	Rows       int
	// Fraction is the scroll offset divided by the content height.
	Fraction float64
}
