package view

import (
	"sync"

	"github.com/zappabad/dealsviewer/internal/deal"
)

// Accumulator is the append-only list of every deal received, in arrival
// order. It is safe for one writer and any number of readers.
//
// Snapshots share the backing array with the accumulator: published
// elements are never rewritten, and appends only touch indices beyond every
// published length, so a snapshot stays valid while the list keeps growing.
type Accumulator struct {
	mu    sync.RWMutex
	deals []deal.Deal
}

// NewAccumulator creates an empty Accumulator with room for capacity deals.
func NewAccumulator(capacity int) *Accumulator {
	if capacity < 0 {
		capacity = 0
	}
	return &Accumulator{
		deals: make([]deal.Deal, 0, capacity),
	}
}

// Append adds a batch. The whole batch becomes visible to readers at once.
func (a *Accumulator) Append(batch []deal.Deal) {
	if len(batch) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.deals = append(a.deals, batch...)
}

// Snapshot returns the deals published so far. The result has its capacity
// clipped to its length and must be treated as read-only.
func (a *Accumulator) Snapshot() []deal.Deal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.deals)
	return a.deals[:n:n]
}

// Len returns the number of deals accumulated.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.deals)
}

