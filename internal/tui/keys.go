package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings of the notification view.
type KeyMap struct {
	Down       key.Binding
	Up         key.Binding
	Toggle     key.Binding
	MarkAll    key.Binding
	Delete     key.Binding
	Search     key.Binding
	ReadFilter key.Binding
	TypeFilter key.Binding
	Sound      key.Binding
	Dismiss    key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "read/unread"),
		),
		MarkAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "mark all read"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		ReadFilter: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "read filter"),
		),
		TypeFilter: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "type filter"),
		),
		Sound: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sound"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss toast"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Toggle, k.MarkAll, k.Delete, k.Search, k.ReadFilter, k.TypeFilter, k.Sound, k.Quit}
}
