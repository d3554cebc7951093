package indicator

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/allbin/go-indicator/internal/port"
)

const lineTerminator = '\n'

// maxLineLength caps a reply that never sends a terminator.
const maxLineLength = 1024

// Transport is the byte-level link to the device. Implementations never
// retry; that policy lives in the connection manager and dispatcher.
type Transport interface {
	// Open acquires the device and returns once it is ready for commands.
	Open() error
	Close() error
	// WriteLine writes line plus a terminator and flushes it.
	WriteLine(line []byte) (int, error)
	// BytesAvailable reports how many inbound bytes are waiting.
	BytesAvailable() (int, error)
	// ReadLine returns the next line without its terminator, or nil if no
	// complete line arrived within timeout.
	ReadLine(timeout time.Duration) ([]byte, error)
}

// openFunc matches port.Open
type openFunc func(device string, opts ...port.Option) (port.Port, error)

// SerialTransport is the Transport over a real serial device.
type SerialTransport struct {
	mu      sync.Mutex
	path    string
	baud    int
	settle  time.Duration
	clock   clockwork.Clock
	open    openFunc
	port    port.Port
	pending []byte
}

var _ Transport = (*SerialTransport)(nil)

// NewSerialTransport creates a transport for cfg.Port; nothing is opened yet.
func NewSerialTransport(cfg Config) *SerialTransport {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SerialTransport{
		path:   cfg.Port,
		baud:   cfg.BaudRate,
		settle: cfg.SettleDelay,
		clock:  clock,
		open:   port.Open,
	}
}

// Open opens the device, discards stale input and waits the settle delay,
// since opening the port resets most boards and their first second of
// input is lost.
func (t *SerialTransport) Open() error {
	t.mu.Lock()
	if t.port != nil {
		_ = t.port.Close()
		t.port = nil
	}
	t.pending = nil
	t.mu.Unlock()

	p, err := t.open(t.path,
		port.WithBaudRate(t.baud),
		port.WithReadTimeout(100*time.Millisecond),
	)
	if err != nil {
		return ioError("open", t.path, err)
	}

	// Bytes queued before the board reset belong to the previous session.
	if err := p.FlushInput(); err != nil {
		_ = p.Close()
		return ioError("flush", t.path, err)
	}

	if t.settle > 0 {
		t.clock.Sleep(t.settle)
	}

	t.mu.Lock()
	t.port = p
	t.mu.Unlock()
	return nil
}

// Close releases the device. Closing a closed transport is a no-op.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	p := t.port
	t.port = nil
	t.pending = nil
	t.mu.Unlock()

	if p == nil {
		return nil
	}
	if err := p.Close(); err != nil && !errors.Is(err, port.ErrPortClosed) {
		return ioError("close", t.path, err)
	}
	return nil
}

func (t *SerialTransport) current() (port.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, ioError("use", t.path, port.ErrPortClosed)
	}
	return t.port, nil
}

// WriteLine writes line and a terminator, looping over short writes,
// then waits for the bytes to leave the UART.
func (t *SerialTransport) WriteLine(line []byte) (int, error) {
	p, err := t.current()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, lineTerminator)

	written := 0
	for written < len(buf) {
		n, err := p.Write(buf[written:])
		written += n
		if err != nil {
			return written, ioError("write", t.path, err)
		}
		if n == 0 {
			return written, ioError("write", t.path, errors.New("short write"))
		}
	}

	if err := p.Drain(); err != nil {
		return written, ioError("drain", t.path, err)
	}
	return written, nil
}

// BytesAvailable counts buffered partial-line bytes plus the OS queue.
func (t *SerialTransport) BytesAvailable() (int, error) {
	p, err := t.current()
	if err != nil {
		return 0, err
	}

	n, err := p.InputWaiting()
	if err != nil {
		return 0, ioError("poll", t.path, err)
	}

	t.mu.Lock()
	n += len(t.pending)
	t.mu.Unlock()
	return n, nil
}

// ReadLine accumulates input until a terminator or the timeout.
// Partial lines are kept for the next call.
func (t *SerialTransport) ReadLine(timeout time.Duration) ([]byte, error) {
	p, err := t.current()
	if err != nil {
		return nil, err
	}

	deadline := t.clock.Now().Add(timeout)
	chunk := make([]byte, 128)
	for {
		if line, ok := t.takeLine(); ok {
			return line, nil
		}

		n, err := p.Read(chunk)
		if err != nil {
			return nil, ioError("read", t.path, err)
		}
		if n > 0 {
			t.mu.Lock()
			t.pending = append(t.pending, chunk[:n]...)
			t.mu.Unlock()
			continue
		}
		if !t.clock.Now().Before(deadline) {
			return nil, nil
		}
	}
}

func (t *SerialTransport) takeLine() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := bytes.IndexByte(t.pending, lineTerminator)
	if i < 0 {
		if len(t.pending) >= maxLineLength {
			line := t.pending
			t.pending = nil
			return line, true
		}
		return nil, false
	}
	line := bytes.TrimRight(t.pending[:i], "\r")
	line = append([]byte(nil), line...)
	t.pending = append([]byte(nil), t.pending[i+1:]...)
	return line, true
}
