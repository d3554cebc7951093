package indicator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

// mockTransport is a scripted Transport. Open and write results are
// consumed in order; once a script runs out the call succeeds.
type mockTransport struct {
	mu sync.Mutex

	openErrs  []error
	writeErrs []error
	replies   [][]byte

	opens  int
	closes int
	writes [][]byte
	isOpen bool

	// writeAttempts counts every WriteLine call, including ones refused
	// because the transport was closed.
	writeAttempts int

	// readBlock, when set, makes ReadLine wait on it.
	readBlock chan struct{}
	readErr   error

	// writeBlock, when set, parks WriteLine until it is closed and then
	// fails the write. Close waits behind a parked write, like a tty close
	// behind tcdrain.
	writeBlock   chan struct{}
	writeStarted chan struct{}
	writesParked int
}

var _ Transport = (*mockTransport)(nil)

func (m *mockTransport) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if len(m.openErrs) > 0 {
		err := m.openErrs[0]
		m.openErrs = m.openErrs[1:]
		if err != nil {
			return err
		}
	}
	m.isOpen = true
	m.readErr = nil
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writesParked > 0 {
		block := m.writeBlock
		m.mu.Unlock()
		<-block
		m.mu.Lock()
	}
	m.closes++
	m.isOpen = false
	return nil
}

func (m *mockTransport) WriteLine(line []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeAttempts++
	if block := m.writeBlock; block != nil && m.isOpen {
		m.writesParked++
		m.writeStarted <- struct{}{}
		m.mu.Unlock()
		<-block
		m.mu.Lock()
		m.writesParked--
		return 0, errBrokenPipe
	}
	if !m.isOpen {
		return 0, errors.New("write on closed transport")
	}
	if len(m.writeErrs) > 0 {
		err := m.writeErrs[0]
		m.writeErrs = m.writeErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	m.writes = append(m.writes, append([]byte(nil), line...))
	return len(line) + 1, nil
}

func (m *mockTransport) BytesAvailable() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	if m.readBlock != nil {
		return 1, nil
	}
	n := 0
	for _, r := range m.replies {
		n += len(r) + 1
	}
	return n, nil
}

func (m *mockTransport) ReadLine(time.Duration) ([]byte, error) {
	m.mu.Lock()
	block := m.readBlock
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, nil
	}
	line := m.replies[0]
	m.replies = m.replies[1:]
	return line, nil
}

func (m *mockTransport) reply(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		m.replies = append(m.replies, []byte(l))
	}
}

func (m *mockTransport) failWrites(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs = append(m.writeErrs, errs...)
}

func (m *mockTransport) failOpens(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs = append(m.openErrs, errs...)
}

func (m *mockTransport) written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	for i, w := range m.writes {
		out[i] = string(w)
	}
	return out
}

func (m *mockTransport) failReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// blockWrites parks the next write until the returned channel is closed.
// The returned started channel receives once the write is parked.
func (m *mockTransport) blockWrites() (release chan struct{}, started chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeBlock = make(chan struct{})
	m.writeStarted = make(chan struct{}, 1)
	return m.writeBlock, m.writeStarted
}

func (m *mockTransport) writeAttemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeAttempts
}

func (m *mockTransport) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

func (m *mockTransport) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// newTestController builds a controller over mt with every delay zeroed
// and a fake clock, so tests run without sleeping.
func newTestController(t *testing.T, mt *mockTransport, opts ...Option) (*Controller, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	base := []Option{
		WithTransport(mt),
		WithClock(clock),
		WithLogger(zerolog.Nop()),
		WithTiming(0, 0, 0, 0),
		WithGreetingTimeout(0),
		WithPollInterval(time.Hour, 0),
	}
	ctrl, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(ctrl.Disconnect)
	return ctrl, clock
}
