package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/tui/colors"
	"github.com/allbin/go-indicator/internal/tui/styles"
)

type StatusBar struct {
	mode   indicator.Mode
	status indicator.Status
	err    error
	width  int
}

func NewStatusBar(mode indicator.Mode) *StatusBar {
	return &StatusBar{mode: mode}
}

func (sb *StatusBar) SetStatus(status indicator.Status) {
	sb.status = status
}

// SetError shows err in place of the state until the next successful command
func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func connIndicator(s indicator.ConnectionState, err error) string {
	switch {
	case err != nil:
		return "✗"
	case s == indicator.Connected:
		return "●"
	default:
		return "○"
	}
}

// replyAge renders how long ago the device last spoke
func replyAge(last, now time.Time) string {
	if last.IsZero() {
		return "no reply"
	}
	age := now.Sub(last).Truncate(time.Second)
	if age < time.Second {
		return "reply now"
	}
	return fmt.Sprintf("reply %s ago", age)
}

// View renders the bar for the given wall time
func (sb *StatusBar) View(now time.Time) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}
	st := sb.status

	state := styles.StateStyle(st.State).Padding(0, 1).Render(
		fmt.Sprintf("%s %s", connIndicator(st.State, sb.err), st.State))

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(st.Port)

	lamp := styles.LampStyle(st.LastColor).Render(st.LastColor.String())

	var errInfo string
	if sb.err != nil {
		errInfo = styles.ErrorStyle.Padding(0, 1).Render(sb.err.Error())
	}

	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d baud %s  retry %d/%d  %s",
			st.BaudRate, sb.mode, st.ReconnectAttempts, st.MaxReconnects,
			replyAge(st.LastResponse, now)))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(now.Format("15:04:05"))

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, state, port, lamp, errInfo, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
