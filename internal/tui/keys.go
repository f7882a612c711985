package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 定义全局快捷键绑定
// KeyMap defines global keybindings
type KeyMap struct {
	Quit           key.Binding
	Cancel         key.Binding
	Next           key.Binding
	Back           key.Binding
	Reset          key.Binding
	Up             key.Binding
	Down           key.Binding
	Toggle         key.Binding
	Edit           key.Binding
	Submit         key.Binding
	SearchBroad    key.Binding
	SearchTargeted key.Binding
	MoveUp         key.Binding
	MoveDown       key.Binding
	Rate           key.Binding
	Export         key.Binding
	PageUp         key.Binding
	PageDown       key.Binding
}

// DefaultKeyMap 默认快捷键
// DefaultKeyMap returns default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel request/edit"),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "ctrl+n"),
			key.WithHelp("n", "next stage"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "ctrl+b"),
			key.WithHelp("b", "back"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "start over"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter", "/"),
			key.WithHelp("enter", "edit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		SearchBroad: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "search all"),
		),
		SearchTargeted: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "search selected"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		Rate: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5"),
			key.WithHelp("1-5", "rate"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
	}
}
