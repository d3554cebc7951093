package models

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/tui/components"
	"github.com/allbin/go-indicator/internal/tui/keys"
	"github.com/allbin/go-indicator/internal/tui/styles"
)

// refreshInterval is how often the status bar is redrawn
const refreshInterval = 500 * time.Millisecond

// Device is the part of the controller the watch view drives
type Device interface {
	Connect() error
	SetColor(indicator.Color) error
	Pulse() error
	Status() indicator.Status
}

// ReplyMsg carries one line the device sent
type ReplyMsg struct {
	Timestamp time.Time
	Line      string
}

type tickMsg time.Time

type commandResultMsg struct {
	label string
	err   error
}

type connectResultMsg struct {
	err error
}

// WatchModel shows the live link state and lets the user drive the light
type WatchModel struct {
	dev       Device
	mode      indicator.Mode
	now       func() time.Time
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.WatchKeys
	lastState indicator.ConnectionState
	ready     bool

	// Device calls run one at a time, in key press order. busy is set
	// while one is in flight; later ones wait in queue.
	busy  bool
	queue []tea.Cmd
}

func NewWatchModel(dev Device, mode indicator.Mode) *WatchModel {
	k := keys.NewWatchKeys()
	k.Legacy(mode == indicator.ModeLegacy)

	st := dev.Status()
	m := &WatchModel{
		dev:       dev,
		mode:      mode,
		now:       time.Now,
		terminal:  components.NewTerminal(0, 0),
		statusBar: components.NewStatusBar(mode),
		help:      help.New(),
		keys:      k,
		lastState: st.State,
	}
	m.statusBar.SetStatus(st)
	return m
}

// Terminal exposes the event log
func (m *WatchModel) Terminal() *components.Terminal {
	return m.terminal
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.enqueue(m.connect()), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *WatchModel) connect() tea.Cmd {
	m.log(components.EventState, "connecting", "")
	return func() tea.Msg {
		return connectResultMsg{err: m.dev.Connect()}
	}
}

// send records the pending command and runs it off the UI loop
func (m *WatchModel) send(label string, fn func() error) tea.Cmd {
	m.log(components.EventCommand, label, "PENDING")
	return func() tea.Msg {
		return commandResultMsg{label: label, err: fn()}
	}
}

func (m *WatchModel) setColor(c indicator.Color) tea.Cmd {
	return m.send(c.String(), func() error { return m.dev.SetColor(c) })
}

// enqueue returns cmd if the device is idle, otherwise holds it until the
// call in flight reports back.
func (m *WatchModel) enqueue(cmd tea.Cmd) tea.Cmd {
	if m.busy {
		m.queue = append(m.queue, cmd)
		return nil
	}
	m.busy = true
	return cmd
}

// next starts the oldest queued device call, if any
func (m *WatchModel) next() tea.Cmd {
	if len(m.queue) == 0 {
		m.busy = false
		return nil
	}
	cmd := m.queue[0]
	m.queue = m.queue[1:]
	return cmd
}

func (m *WatchModel) log(kind components.EventKind, text, status string) {
	m.terminal.AddMessage(components.EventMsg{
		Timestamp: m.now(),
		Kind:      kind,
		Text:      text,
		Status:    status,
	})
}

// refresh pulls a fresh status and logs state transitions
func (m *WatchModel) refresh() {
	st := m.dev.Status()
	if st.State != m.lastState {
		m.log(components.EventState, fmt.Sprintf("%s -> %s", m.lastState, st.State), "")
		m.lastState = st.State
	}
	m.statusBar.SetStatus(st)
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// border, status bar and help line
		verticalMarginHeight := 3
		m.terminal.SetSize(msg.Width, msg.Height-verticalMarginHeight)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.ready = true
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		m.refresh()
		cmds = append(cmds, tick())

	case ReplyMsg:
		m.terminal.AddMessage(components.EventMsg{
			Timestamp: msg.Timestamp,
			Kind:      components.EventReply,
			Text:      msg.Line,
		})

	case connectResultMsg:
		if msg.err != nil {
			m.statusBar.SetError(msg.err)
			m.log(components.EventError, msg.err.Error(), "")
		} else {
			m.statusBar.SetError(nil)
		}
		m.refresh()
		cmds = append(cmds, m.next())

	case commandResultMsg:
		if msg.err != nil {
			m.statusBar.SetError(msg.err)
			m.log(components.EventCommand, fmt.Sprintf("%s: %v", msg.label, msg.err), "ERROR")
		} else {
			m.statusBar.SetError(nil)
			m.log(components.EventCommand, msg.label, "WRITTEN")
		}
		m.refresh()
		cmds = append(cmds, m.next())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Green):
			cmds = append(cmds, m.enqueue(m.setColor(indicator.Green)))
		case key.Matches(msg, m.keys.Red):
			cmds = append(cmds, m.enqueue(m.setColor(indicator.Red)))
		case key.Matches(msg, m.keys.Orange):
			cmds = append(cmds, m.enqueue(m.setColor(indicator.Orange)))
		case key.Matches(msg, m.keys.Pulse):
			cmds = append(cmds, m.enqueue(m.send("pulse", m.dev.Pulse)))
		case key.Matches(msg, m.keys.Reconnect):
			cmds = append(cmds, m.enqueue(m.connect()))
		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()
		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
		}

	case tea.MouseMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *WatchModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		m.statusBar.View(m.now()),
		m.help.View(m.keys),
	)
}
