package deal

import (
	"cmp"
	"sort"
	"strings"
)

// Sort returns a new slice holding deals ordered by st. The input is never
// modified. Deals with equal keys keep their relative input order.
func Sort(deals []Deal, st SortState) []Deal {
	out := make([]Deal, len(deals))
	copy(out, deals)
	if len(out) < 2 {
		return out
	}

	compare := comparator(st.Key)
	sort.SliceStable(out, func(i, j int) bool {
		if st.Descending {
			return compare(out[j], out[i]) < 0
		}
		return compare(out[i], out[j]) < 0
	})
	return out
}

// comparator returns a three-way compare over the field projected by k.
func comparator(k SortKey) func(a, b Deal) int {
	switch k {
	case SortByInstrument:
		return func(a, b Deal) int { return strings.Compare(a.InstrumentName, b.InstrumentName) }
	case SortByPrice:
		return func(a, b Deal) int { return cmp.Compare(a.Price, b.Price) }
	case SortByAmount:
		return func(a, b Deal) int { return cmp.Compare(a.Amount, b.Amount) }
	case SortBySide:
		return func(a, b Deal) int { return cmp.Compare(a.Side, b.Side) }
	default:
		return func(a, b Deal) int { return a.ModifiedAt.Compare(b.ModifiedAt) }
	}
}

// IsSorted reports whether deals are ordered by st.
func IsSorted(deals []Deal, st SortState) bool {
	compare := comparator(st.Key)
	for i := 1; i < len(deals); i++ {
		c := compare(deals[i-1], deals[i])
		if st.Descending {
			c = -c
		}
		if c > 0 {
			return false
		}
	}
	return true
}
