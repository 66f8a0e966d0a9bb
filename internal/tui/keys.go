package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is what a key press means, independent of the key itself.
type Action int

const (
	ActionNone Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionSelect
	ActionBack
	ActionNextField
	ActionPrevField
	ActionNew
	ActionAddRoom
	ActionDelete
	ActionList
	ActionClose
	ActionQuit
	// ActionInput is any other key; forms feed it to the focused field.
	ActionInput
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Enter   key.Binding
	Back    key.Binding
	Tab     key.Binding
	BackTab key.Binding
	New     key.Binding
	AddRoom key.Binding
	Delete  key.Binding
	List    key.Binding
	Close   key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "previous button"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next button"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	BackTab: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new estimate"),
	),
	AddRoom: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add room"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete"),
	),
	List: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "estimates"),
	),
	Close: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "close"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// action maps msg to an Action. In form mode only navigation keys are
// actions so letters reach the text inputs.
func (k keyMap) action(msg tea.KeyMsg, formMode bool) Action {
	switch {
	case key.Matches(msg, k.Quit):
		return ActionQuit
	case key.Matches(msg, k.Enter):
		return ActionSelect
	case key.Matches(msg, k.Back):
		return ActionBack
	}
	if formMode {
		switch {
		case key.Matches(msg, k.Tab):
			return ActionNextField
		case key.Matches(msg, k.BackTab):
			return ActionPrevField
		}
		return ActionInput
	}
	switch {
	case key.Matches(msg, k.Up):
		return ActionUp
	case key.Matches(msg, k.Down):
		return ActionDown
	case key.Matches(msg, k.Left):
		return ActionLeft
	case key.Matches(msg, k.Right), msg.Type == tea.KeyTab:
		return ActionRight
	case key.Matches(msg, k.New):
		return ActionNew
	case key.Matches(msg, k.AddRoom):
		return ActionAddRoom
	case key.Matches(msg, k.Delete):
		return ActionDelete
	case key.Matches(msg, k.List):
		return ActionList
	case key.Matches(msg, k.Close):
		return ActionClose
	}
	return ActionInput
}

// helpKeys adapts a binding list to help.KeyMap.
type helpKeys []key.Binding

func (h helpKeys) ShortHelp() []key.Binding  { return h }
func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h} }
