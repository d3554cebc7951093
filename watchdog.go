package indicator

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// watchdog drains device replies in the background and notices when the
// device goes quiet. One goroutine runs per session, started by the first
// successful connect and stopped by Disconnect or the Failed state.
type watchdog struct {
	conn  *ConnectionManager
	cfg   Config
	clock clockwork.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newWatchdog(conn *ConnectionManager, cfg Config, clock clockwork.Clock, log zerolog.Logger) *watchdog {
	return &watchdog{
		conn:  conn,
		cfg:   cfg,
		clock: clock,
		log:   log.With().Str("loop", "watchdog").Logger(),
	}
}

// start launches the loop unless it is already running
func (w *watchdog) start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.run(w.stopCh, w.doneCh)
}

// stop asks the loop to exit and waits at most timeout for it. It reports
// whether the loop finished in time.
func (w *watchdog) stop(timeout time.Duration) bool {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return true
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	if timeout <= 0 {
		<-doneCh
		return true
	}

	// Real time on purpose: a fake clock must not be able to hang Disconnect.
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-doneCh:
		return true
	case <-timer.C:
		return false
	}
}

func (w *watchdog) run(stopCh, doneCh chan struct{}) {
	defer func() {
		w.mu.Lock()
		if w.doneCh == doneCh {
			w.running = false
		}
		w.mu.Unlock()
		close(doneCh)
		w.log.Debug().Msg("watchdog stopped")
	}()

	w.log.Debug().Dur("interval", w.cfg.PollInterval).Msg("watchdog started")

	for {
		if !w.iterate(stopCh) {
			return
		}

		select {
		case <-stopCh:
			return
		case <-w.clock.After(w.cfg.PollInterval):
		}
	}
}

// iterate runs one poll. It returns false when the loop should exit.
func (w *watchdog) iterate(stopCh chan struct{}) (keepGoing bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("recovered panic in watchdog iteration")
			keepGoing = true
		}
	}()

	if stopping(stopCh) {
		return false
	}

	t, gen, state, connected := w.conn.liveTransport()
	if t == nil || state == Failed {
		return false
	}

	if connected {
		if err := w.drain(t, gen); err != nil {
			if stopping(stopCh) {
				return false
			}
			w.conn.recoverLink(gen, err)
			w.backoff(stopCh)
			return !stopping(stopCh)
		}
	}

	w.conn.CheckLiveness()
	return true
}

// drain reads one line if any input is waiting. The session lock is not
// held here, so writers are never blocked behind a read.
func (w *watchdog) drain(t Transport, gen uint64) error {
	n, err := t.BytesAvailable()
	if err != nil {
		return ioError("poll", w.cfg.Port, err)
	}
	if n == 0 {
		return nil
	}

	line, err := t.ReadLine(w.cfg.IOTimeout)
	if err != nil {
		return ioError("read", w.cfg.Port, err)
	}
	if line == nil {
		return nil
	}

	text := decodeReply(line)
	if text == "" {
		return nil
	}

	w.conn.recordResponse(gen, w.clock.Now())
	w.log.Debug().Str("reply", text).Msg("device reply")
	w.conn.deliverReply(text)
	return nil
}

func (w *watchdog) backoff(stopCh chan struct{}) {
	if w.cfg.ErrorBackoff <= 0 {
		return
	}
	select {
	case <-stopCh:
	case <-w.clock.After(w.cfg.ErrorBackoff):
	}
}

func stopping(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

// decodeReply turns raw reply bytes into a trimmed string, replacing
// invalid UTF-8 rather than failing on line noise.
func decodeReply(line []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(line), "�"))
}
