package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// KeyMap holds the browser key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	Open        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	SwitchPane  key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	Copy        key.Binding
	Reload      key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Open:        key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		SwitchPane:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFilter: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy route")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.SwitchPane, k.Filter, k.Copy, k.Reload, k.Quit}
}

// helpLine renders bindings as "key desc" pairs.
func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// treeKey maps a terminal key to the key name the tree bindings expect.
func (k KeyMap) treeKey(msg tea.KeyMsg) (string, bool) {
	switch {
	case key.Matches(msg, k.Up):
		return treeview.KeyArrowUp, true
	case key.Matches(msg, k.Down):
		return treeview.KeyArrowDown, true
	case key.Matches(msg, k.Left):
		return treeview.KeyArrowLeft, true
	case key.Matches(msg, k.Right):
		return treeview.KeyArrowRight, true
	case key.Matches(msg, k.Open):
		return treeview.KeyEnter, true
	}
	return "", false
}
