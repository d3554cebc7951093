package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-indicator/internal/tui/colors"
)

// EventKind is what an event log line records
type EventKind int

const (
	EventCommand EventKind = iota // command sent to the device
	EventReply                    // line received from the device
	EventState                    // connection state change
	EventError
)

// EventMsg is one line of the event log
type EventMsg struct {
	Timestamp time.Time
	Kind      EventKind
	Text      string
	Status    string // commands only: "PENDING", "WRITTEN", "ERROR"
}

type DataFormatter struct {
	showHex bool
}

func NewDataFormatter(showHex bool) *DataFormatter {
	return &DataFormatter{showHex: showHex}
}

func (df *DataFormatter) ShowHex() bool {
	return df.showHex
}

func (df *DataFormatter) ToggleHex() {
	df.showHex = !df.showHex
}

func (df *DataFormatter) FormatMessage(msg EventMsg) string {
	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))

	var tag string
	switch msg.Kind {
	case EventCommand:
		tagColor := colors.Peach
		label := "TX"
		switch msg.Status {
		case "PENDING":
			tagColor, label = colors.Yellow, "TX ○"
		case "WRITTEN":
			tagColor, label = colors.Green, "TX ✓"
		case "ERROR":
			tagColor, label = colors.Red, "TX ✗"
		}
		tag = lipgloss.NewStyle().Foreground(tagColor).Bold(true).Render("↗ " + label)
	case EventReply:
		tag = lipgloss.NewStyle().Foreground(colors.Teal).Bold(true).Render("↙ RX")
	case EventState:
		tag = lipgloss.NewStyle().Foreground(colors.Blue).Bold(true).Render("● LINK")
	default:
		tag = lipgloss.NewStyle().Foreground(colors.Red).Bold(true).Render("✗ ERR")
	}

	text := sanitize(msg.Text)
	if df.showHex && msg.Kind == EventReply {
		text = fmt.Sprintf("%s  HEX: % X", text, []byte(msg.Text))
	}

	return fmt.Sprintf("%s %s: %s", timestamp, tag, text)
}

func (df *DataFormatter) FormatMessages(messages []EventMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

// sanitize keeps device output from injecting terminal control sequences
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '.'
		}
		return r
	}, s)
}
