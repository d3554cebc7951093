package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI commands
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// WatchKeys drives the indicator from the watch view
type WatchKeys struct {
	CommonKeys
	Green     key.Binding
	Red       key.Binding
	Orange    key.Binding
	Pulse     key.Binding
	Reconnect key.Binding
	Clear     key.Binding
	ToggleHex key.Binding
}

func NewWatchKeys() WatchKeys {
	return WatchKeys{
		CommonKeys: NewCommonKeys(),
		Green: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "green"),
		),
		Red: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "red"),
		),
		Orange: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "orange"),
		),
		Pulse: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pulse"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "reconnect"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear log"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex"),
		),
	}
}

// Legacy enables the bindings only legacy firmware understands
func (k *WatchKeys) Legacy(enabled bool) {
	k.Orange.SetEnabled(enabled)
	k.Pulse.SetEnabled(enabled)
}

func (k WatchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Green, k.Red, k.Orange, k.Pulse, k.Help, k.Quit}
}

func (k WatchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Green, k.Red, k.Orange, k.Pulse},
		{k.Reconnect, k.Clear, k.ToggleHex},
		{k.Help, k.Quit},
	}
}
