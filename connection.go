package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ConnectionManager owns the transport and runs the connect/reconnect
// state machine:
//
//	Disconnected --Connect--> Connecting --ok--> Connected
//	Connecting --error--> Disconnected
//	Connected --liveness or write failure--> Reconnecting
//	Disconnected --liveness check--> Reconnecting
//	Reconnecting --reopened--> Connected
//	Reconnecting --attempts exhausted--> Failed
//	Failed --Connect--> Connecting
type ConnectionManager struct {
	sess      *session
	transport Transport
	cfg       Config
	clock     clockwork.Clock
	log       zerolog.Logger
	watchdog  *watchdog

	// writeMu keeps commands whole on the wire. It is never held with
	// sess.mu, so a stalled write cannot block Disconnect.
	writeMu sync.Mutex
}

func newConnectionManager(sess *session, t Transport, cfg Config, clock clockwork.Clock, log zerolog.Logger) *ConnectionManager {
	m := &ConnectionManager{
		sess:      sess,
		transport: t,
		cfg:       cfg,
		clock:     clock,
		log:       log,
	}
	m.watchdog = newWatchdog(m, cfg, clock, log)
	return m
}

// Connect opens the link, resetting it first if it is already up.
// It is the only way out of Failed.
func (m *ConnectionManager) Connect() error {
	m.sess.mu.Lock()
	if m.sess.closed {
		m.sess.mu.Unlock()
		return ErrSessionClosed
	}
	if m.sess.state == Connecting || m.sess.state == Reconnecting {
		m.sess.mu.Unlock()
		return ErrConnectInProgress
	}
	prev := m.sess.state
	m.sess.state = Connecting
	wasOpen := m.sess.handleOpen
	m.sess.handleOpen = false
	m.sess.mu.Unlock()

	if prev == Connected {
		m.log.Debug().Msg("resetting open connection")
	}
	if wasOpen {
		m.closeTransport()
	}

	err := m.dial()
	if err != nil {
		m.sess.mu.Lock()
		if !m.sess.closed {
			if m.sess.reconnectAttempts >= m.sess.maxReconnectAttempts {
				m.sess.state = Failed
			} else {
				m.sess.state = Disconnected
			}
		}
		m.sess.mu.Unlock()
		m.log.Error().Err(err).Msg("could not connect to indicator; continuing without it")
	}
	return err
}

// dial opens the transport and, on success, moves the session to
// Connected. The caller has already claimed Connecting or Reconnecting.
func (m *ConnectionManager) dial() error {
	m.log.Debug().Int("baud", m.cfg.BaudRate).Msg("opening serial link")

	if err := m.transport.Open(); err != nil {
		return ioError("open", m.cfg.Port, err)
	}

	greeted := m.drainGreeting()

	m.sess.mu.Lock()
	if m.sess.closed {
		m.sess.mu.Unlock()
		m.closeTransport()
		return ErrSessionClosed
	}
	m.sess.state = Connected
	m.sess.handleOpen = true
	m.sess.reconnectAttempts = 0
	m.sess.generation++
	m.sess.lastResponse = greeted
	// Opening the port resets the board, so its colour is unknown again.
	m.sess.colorSynced = false
	m.sess.mu.Unlock()

	m.watchdog.start()
	m.log.Info().Msg("indicator connected")
	return nil
}

// drainGreeting reads the boot banner until the line goes quiet or the
// greeting timeout passes. It returns when the last line arrived.
func (m *ConnectionManager) drainGreeting() time.Time {
	var last time.Time
	if m.cfg.GreetingTimeout <= 0 {
		return last
	}

	deadline := m.clock.Now().Add(m.cfg.GreetingTimeout)
	for {
		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			return last
		}
		line, err := m.transport.ReadLine(min(remaining, m.cfg.IOTimeout))
		if err != nil {
			m.log.Debug().Err(err).Msg("greeting drain stopped")
			return last
		}
		if line == nil {
			return last
		}
		if text := decodeReply(line); text != "" {
			last = m.clock.Now()
			m.log.Info().Str("reply", text).Msg("device greeting")
			m.deliverReply(text)
		}
	}
}

// Disconnect ends the session. It stops the watchdog and closes the
// transport, waiting at most StopTimeout for each.
func (m *ConnectionManager) Disconnect() {
	m.sess.mu.Lock()
	if m.sess.closed {
		m.sess.mu.Unlock()
		return
	}
	m.sess.closed = true
	m.sess.mu.Unlock()

	if !m.watchdog.stop(m.cfg.StopTimeout) {
		m.log.Warn().Dur("timeout", m.cfg.StopTimeout).Msg("watchdog did not stop in time; closing anyway")
	}

	if !m.closeTransportWithin(m.cfg.StopTimeout) {
		m.log.Warn().Dur("timeout", m.cfg.StopTimeout).Msg("serial port did not close in time")
	}

	m.sess.mu.Lock()
	m.sess.state = Disconnected
	m.sess.handleOpen = false
	m.sess.mu.Unlock()

	m.log.Info().Msg("indicator disconnected")
}

// IsConnected reports whether commands can be written right now
func (m *ConnectionManager) IsConnected() bool {
	m.sess.mu.Lock()
	defer m.sess.mu.Unlock()
	return m.sess.state == Connected && !m.sess.closed
}

// CheckLiveness returns true while the link is connected and the device
// has not been silent for longer than the watchdog timeout. Otherwise it
// drops the link and runs the reconnection policy, returning whether the
// link came back. Only the caller that moves the session to Reconnecting
// reconnects; concurrent callers get false.
func (m *ConnectionManager) CheckLiveness() bool {
	m.sess.mu.Lock()
	if m.sess.closed {
		m.sess.mu.Unlock()
		return false
	}
	switch m.sess.state {
	case Connected:
		last := m.sess.lastResponse
		if last.IsZero() || m.clock.Since(last) < m.sess.watchdogTimeout {
			m.sess.mu.Unlock()
			return true
		}
		m.log.Warn().
			Dur("silence", m.clock.Since(last)).
			Dur("timeout", m.sess.watchdogTimeout).
			Msg("no response from device; treating link as dead")
	case Connecting, Reconnecting, Failed:
		m.sess.mu.Unlock()
		return false
	}
	m.sess.state = Reconnecting
	wasOpen := m.sess.handleOpen
	m.sess.handleOpen = false
	m.sess.mu.Unlock()

	if wasOpen {
		m.closeTransport()
	}
	return m.reconnect()
}

// reconnect retries the transport with a fixed delay until it opens or
// the attempt budget is spent, which leaves the session Failed. The
// caller must have moved the session to Reconnecting.
func (m *ConnectionManager) reconnect() bool {
	for {
		m.sess.mu.Lock()
		if m.sess.closed {
			m.sess.mu.Unlock()
			return false
		}
		if m.sess.state != Reconnecting {
			ok := m.sess.state == Connected
			m.sess.mu.Unlock()
			return ok
		}
		if m.sess.reconnectAttempts >= m.sess.maxReconnectAttempts {
			m.sess.state = Failed
			attempts := m.sess.reconnectAttempts
			m.sess.mu.Unlock()
			m.log.Error().
				Err(ErrReconnectExhausted).
				Int("attempts", attempts).
				Msg("giving up on indicator until the next explicit connect")
			return false
		}
		m.sess.reconnectAttempts++
		attempt := m.sess.reconnectAttempts
		m.sess.mu.Unlock()

		m.log.Warn().
			Int("attempt", attempt).
			Int("max", m.cfg.MaxReconnectAttempts).
			Msg("reconnecting to indicator")

		m.sleep(m.cfg.ReconnectDelay)

		err := m.dial()
		if err == nil {
			return true
		}
		if err == ErrSessionClosed {
			return false
		}
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect attempt failed")
	}
}

// markDown records a transport failure seen by a writer or the watchdog
// and moves the session to Reconnecting. It returns true only for the
// caller that made the move, which then owns the reconnect. Failures from
// an earlier connection generation are ignored.
func (m *ConnectionManager) markDown(gen uint64, err error) bool {
	m.sess.mu.Lock()
	if m.sess.closed || m.sess.generation != gen || m.sess.state != Connected {
		m.sess.mu.Unlock()
		return false
	}
	m.sess.state = Reconnecting
	wasOpen := m.sess.handleOpen
	m.sess.handleOpen = false
	m.sess.mu.Unlock()

	m.log.Warn().Err(err).Msg("serial link failed")
	if wasOpen {
		m.closeTransport()
	}
	return true
}

// recoverLink handles a transport failure from generation gen. It reports
// whether the link is Connected afterwards.
func (m *ConnectionManager) recoverLink(gen uint64, err error) bool {
	if m.markDown(gen, err) {
		return m.reconnect()
	}
	return m.IsConnected()
}

// writeLine writes one command if the session is Connected. The state is
// checked under the session lock but the write runs outside it; a close
// that races the write fails it instead of waiting for it.
func (m *ConnectionManager) writeLine(line []byte) (uint64, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.sess.mu.Lock()
	if m.sess.closed {
		m.sess.mu.Unlock()
		return 0, ErrSessionClosed
	}
	if m.sess.state != Connected {
		err := m.notConnectedErrLocked()
		m.sess.mu.Unlock()
		return 0, err
	}
	gen := m.sess.generation
	m.sess.mu.Unlock()

	if _, err := m.transport.WriteLine(line); err != nil {
		return gen, ioError("write", m.cfg.Port, err)
	}
	return gen, nil
}

func (m *ConnectionManager) notConnectedErrLocked() error {
	switch {
	case m.sess.closed:
		return ErrSessionClosed
	case m.sess.state == Failed:
		return fmt.Errorf("%w: %w", ErrNotConnected, ErrReconnectExhausted)
	default:
		return ErrNotConnected
	}
}

func (m *ConnectionManager) notConnectedErr() error {
	m.sess.mu.Lock()
	defer m.sess.mu.Unlock()
	return m.notConnectedErrLocked()
}

// liveTransport returns the transport and its generation if the session is
// Connected, for the watchdog to read without holding the lock.
func (m *ConnectionManager) liveTransport() (Transport, uint64, ConnectionState, bool) {
	m.sess.mu.Lock()
	defer m.sess.mu.Unlock()
	if m.sess.closed {
		return nil, 0, m.sess.state, false
	}
	return m.transport, m.sess.generation, m.sess.state, m.sess.state == Connected
}

func (m *ConnectionManager) recordResponse(gen uint64, at time.Time) {
	m.sess.mu.Lock()
	defer m.sess.mu.Unlock()
	if m.sess.generation == gen && m.sess.state == Connected {
		m.sess.lastResponse = at
	}
}

func (m *ConnectionManager) deliverReply(text string) {
	if m.cfg.OnReply != nil {
		m.cfg.OnReply(text)
	}
}

func (m *ConnectionManager) closeTransport() {
	if err := m.transport.Close(); err != nil {
		m.log.Debug().Err(err).Msg("closing serial link")
	}
}

// closeTransportWithin closes the transport, giving up the wait after
// timeout. A port stuck in a drain can hold its close indefinitely.
func (m *ConnectionManager) closeTransportWithin(timeout time.Duration) bool {
	if timeout <= 0 {
		m.closeTransport()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.closeTransport()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (m *ConnectionManager) sleep(d time.Duration) {
	if d > 0 {
		m.clock.Sleep(d)
	}
}
