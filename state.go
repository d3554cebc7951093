package indicator

import (
	"fmt"
	"sync"
	"time"
)

// ConnectionState is the lifecycle state of the serial link
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// session is the single shared record of the link. Every field is guarded
// by mu; the connection manager owns state, attempts and the handle, the
// dispatcher owns lastSentColor.
type session struct {
	mu sync.Mutex

	port      string
	baudRate  int
	ioTimeout time.Duration

	state                ConnectionState
	lastSentColor        Color
	colorSynced          bool // lastSentColor has been delivered on this connection
	reconnectAttempts    int
	maxReconnectAttempts int
	lastResponse         time.Time // zero until the device says something
	watchdogTimeout      time.Duration

	generation uint64 // bumped on every successful connect
	handleOpen bool
	closed     bool
}

func newSession(cfg Config) *session {
	return &session{
		port:                 cfg.Port,
		baudRate:             cfg.BaudRate,
		ioTimeout:            cfg.IOTimeout,
		state:                Disconnected,
		lastSentColor:        Green,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		watchdogTimeout:      cfg.WatchdogTimeout,
	}
}

// Status is a point-in-time copy of the session
type Status struct {
	Port              string
	BaudRate          int
	State             ConnectionState
	LastColor         Color
	ReconnectAttempts int
	MaxReconnects     int
	LastResponse      time.Time
	Closed            bool
}

// Alive reports whether the status describes a usable link
func (s Status) Alive() bool {
	return s.State == Connected && !s.Closed
}

func (s *session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Port:              s.port,
		BaudRate:          s.baudRate,
		State:             s.state,
		LastColor:         s.lastSentColor,
		ReconnectAttempts: s.reconnectAttempts,
		MaxReconnects:     s.maxReconnectAttempts,
		LastResponse:      s.lastResponse,
		Closed:            s.closed,
	}
}
