package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/dealsviewer/internal/deal"
)

type keyMap struct {
	SortInstrument key.Binding
	SortPrice      key.Binding
	SortAmount     key.Binding
	SortSide       key.Binding
	SortDate       key.Binding
	Up             key.Binding
	Down           key.Binding
	PageDown       key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		SortInstrument: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "instrument")),
		SortPrice:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "price")),
		SortAmount:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "amount")),
		SortSide:       key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "side")),
		SortDate:       key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "date")),
		Up:             key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:           key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageDown:       key.NewBinding(key.WithKeys("pgdown", "f", " "), key.WithHelp("pgdn", "page")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// sortKey maps a key press to the column it sorts.
func (k keyMap) sortKey(msg tea.KeyMsg) (deal.SortKey, bool) {
	bindings := []struct {
		b   key.Binding
		key deal.SortKey
	}{
		{k.SortInstrument, deal.SortByInstrument},
		{k.SortPrice, deal.SortByPrice},
		{k.SortAmount, deal.SortByAmount},
		{k.SortSide, deal.SortBySide},
		{k.SortDate, deal.SortByDate},
	}
	for _, e := range bindings {
		if key.Matches(msg, e.b) {
			return e.key, true
		}
	}
	return 0, false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SortInstrument, k.SortPrice, k.SortAmount, k.SortSide, k.SortDate, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SortInstrument, k.SortPrice, k.SortAmount, k.SortSide, k.SortDate},
		{k.Up, k.Down, k.PageDown},
		{k.Help, k.Quit},
	}
}
