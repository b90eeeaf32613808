package service

import (
	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/internal/deal/view"
)

// Config holds configuration for the deal service.
type Config struct {
	// Window controls page size and the scroll threshold for growth.
	Window view.WindowConfig
	// InitialSort is the sort state applied before the user picks one.
	InitialSort deal.SortState
	// ResortOnBatch re-derives the sorted view whenever a batch arrives.
	// When false the next sort or growth request picks up new deals.
	ResortOnBatch bool
	// CommandBuffer is the size of the inbound command channel.
	CommandBuffer int
	// InitialCapacity pre-sizes the accumulator.
	InitialCapacity int
	// EventBuffer is the size of the external events channel.
	EventBuffer int
	// DropEvents determines whether the events channel drops on overflow.
	DropEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Window:          view.DefaultWindowConfig(),
		InitialSort:     deal.DefaultSortState(),
		ResortOnBatch:   true,
		CommandBuffer:   64,
		InitialCapacity: 4096,
		EventBuffer:     64,
		DropEvents:      false,
	}
}
