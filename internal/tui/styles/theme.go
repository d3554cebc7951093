package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/tui/colors"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Green)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)
)

// StateStyle renders a connection state in its colour
func StateStyle(s indicator.ConnectionState) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(colors.State(s)).
		Bold(true)
}

// LampStyle draws the indicator light as a solid block of its colour
func LampStyle(c indicator.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Lamp(c)).
		Bold(true).
		Padding(0, 1)
}
