package deal

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownSide    = errors.New("unknown side")
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// Side represents the deal side: buy or sell.
// Ordering over sides follows declaration order (buy < sell).
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide parses "buy" or "sell" (case-insensitive).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, ErrUnknownSide
	}
}

// Deal is an immutable value describing one trade.
type Deal struct {
	ID             string
	InstrumentName string
	Price          float64
	Amount         float64
	Side           Side
	ModifiedAt     time.Time
}

// SortKey selects the field a deal list is ordered by.
type SortKey uint8

const (
	SortByInstrument SortKey = iota
	SortByPrice
	SortByAmount
	SortBySide
	SortByDate
)

// SortKeys lists all keys in column order.
var SortKeys = []SortKey{SortByInstrument, SortByPrice, SortByAmount, SortBySide, SortByDate}

func (k SortKey) String() string {
	switch k {
	case SortByInstrument:
		return "instrument"
	case SortByPrice:
		return "price"
	case SortByAmount:
		return "amount"
	case SortBySide:
		return "side"
	case SortByDate:
		return "date"
	default:
		return "unknown"
	}
}

// ParseSortKey parses a key name as produced by SortKey.String.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if k.String() == strings.ToLower(s) {
			return k, nil
		}
	}
	return 0, ErrUnknownSortKey
}

// Indicator is the per-column header state shown to the user.
type Indicator uint8

const (
	Unordered Indicator = iota
	Ascending
	Descending
)

func (i Indicator) String() string {
	switch i {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "none"
	}
}

// SortState is the active ordering. Exactly one key is active at a time.
type SortState struct {
	Key        SortKey
	Descending bool
}

// DefaultSortState orders by date, oldest first.
func DefaultSortState() SortState {
	return SortState{Key: SortByDate}
}

// Indicator derives the header state of column k.
func (s SortState) Indicator(k SortKey) Indicator {
	if k != s.Key {
		return Unordered
	}
	if s.Descending {
		return Descending
	}
	return Ascending
}

// Toggle returns the state after the user activates column k: a new column
// starts ascending, the active column flips direction.
func (s SortState) Toggle(k SortKey) SortState {
	if k != s.Key {
		return SortState{Key: k}
	}
	return SortState{Key: k, Descending: !s.Descending}
}

func (s SortState) String() string {
	dir := "asc"
	if s.Descending {
		dir = "desc"
	}
	return s.Key.String() + " " + dir
}
