package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEvents bounds the log kept for redraws
const maxEvents = 1000

// Terminal is the scrolling event log
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	events    []EventMsg
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(false),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) AddMessage(msg EventMsg) {
	t.events = append(t.events, msg)
	if len(t.events) > maxEvents {
		t.events = t.events[len(t.events)-maxEvents:]
	}
	t.refresh()
}

// Events returns the retained log
func (t *Terminal) Events() []EventMsg {
	return t.events
}

func (t *Terminal) Clear() {
	t.events = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatMessages(t.events), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Only pass certain message types to viewport to prevent it from consuming our key bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
