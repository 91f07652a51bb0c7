package components

import "github.com/charmbracelet/bubbles/key"

// TreeKeyMap defines the tree view key bindings.
type TreeKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding // Collapse.
	Right    key.Binding // Expand.
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	Activate key.Binding

	ExpandAll   key.Binding
	CollapseAll key.Binding

	Search      key.Binding // Focus the search input.
	ClearSearch key.Binding // Leave the input, or clear the term.
}

// DefaultTreeKeyMap is the built-in key binding set: arrows alongside
// vim-style h/j/k/l.
var DefaultTreeKeyMap = TreeKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Activate: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	ExpandAll: key.NewBinding(
		key.WithKeys("+"),
		key.WithHelp("+", "expand all"),
	),
	CollapseAll: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "collapse all"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	ClearSearch: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear search"),
	),
}

// ShortHelp implements help.KeyMap.
func (k TreeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Right, k.Left, k.Activate, k.Search}
}

// FullHelp implements help.KeyMap.
func (k TreeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Right, k.Left, k.ExpandAll, k.CollapseAll},
		{k.Activate, k.Search, k.ClearSearch},
	}
}
