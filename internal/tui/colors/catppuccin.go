package colors

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-indicator"
)

// Catppuccin Mocha color palette
var (
	Base     = lipgloss.Color("#1e1e2e")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Teal   = lipgloss.Color("#94e2d5")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

// Lamp is the palette colour that stands in for the physical light
func Lamp(c indicator.Color) lipgloss.Color {
	switch c {
	case indicator.Red:
		return Red
	case indicator.Orange:
		return Peach
	default:
		return Green
	}
}

// State colours a connection state: green when usable, yellow while
// connecting, red when down.
func State(s indicator.ConnectionState) lipgloss.Color {
	switch s {
	case indicator.Connected:
		return Green
	case indicator.Connecting, indicator.Reconnecting:
		return Yellow
	default:
		return Red
	}
}
