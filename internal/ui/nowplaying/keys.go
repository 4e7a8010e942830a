package nowplaying

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayPause key.Binding
	Stop      key.Binding
	Next      key.Binding
	Prev      key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Loop      key.Binding
	Up        key.Binding
	Down      key.Binding
	Jump      key.Binding
	Remove    key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Add       key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		VolUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Loop:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Jump:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		Remove:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove")),
		MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add file")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Next, k.Prev, k.Loop, k.Add, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Stop, k.Next, k.Prev},
		{k.VolUp, k.VolDown, k.Loop},
		{k.Up, k.Down, k.Jump, k.Remove},
		{k.MoveUp, k.MoveDown, k.Add},
		{k.Help, k.Quit},
	}
}
