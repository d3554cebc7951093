//go:build !linux

package port

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// pollTimeout bounds the non-blocking read used to answer InputWaiting.
const pollTimeout = 5 * time.Millisecond

// bugstPort adapts go.bug.st/serial to the Port interface. The library has
// no input-queue query, so InputWaiting reads ahead into pending.
type bugstPort struct {
	mu      sync.Mutex
	port    serial.Port
	config  Config
	pending []byte
	closed  bool
}

var _ Port = (*bugstPort)(nil)

// ValidateBaudRate rejects rates the portable backend cannot express
func ValidateBaudRate(rate int) error {
	if rate <= 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(device, &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, classifyPortError(device, err)
	}

	if err := p.SetReadTimeout(config.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &bugstPort{port: p, config: config}, nil
}

func classifyPortError(device string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			return fmt.Errorf("open %s: %w: %w", device, ErrDeviceNotFound, err)
		case serial.PermissionDenied:
			return fmt.Errorf("open %s: %w: %w", device, ErrPermissionDenied, err)
		case serial.PortBusy:
			return fmt.Errorf("open %s: %w: %w", device, ErrDeviceInUse, err)
		case serial.InvalidSpeed:
			return fmt.Errorf("open %s: %w: %w", device, ErrInvalidBaudRate, err)
		}
	}
	return classifyOpenError(device, err)
}

func (p *bugstPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	p.pending = nil
	return p.port.Close()
}

func (p *bugstPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()

	return p.port.Read(buf)
}

func (p *bugstPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

func (p *bugstPort) InputWaiting() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if len(p.pending) > 0 {
		return len(p.pending), nil
	}

	if err := p.port.SetReadTimeout(pollTimeout); err != nil {
		return 0, err
	}
	defer func() { _ = p.port.SetReadTimeout(p.config.ReadTimeout) }()

	buf := make([]byte, 256)
	n, err := p.port.Read(buf)
	if err != nil {
		return 0, err
	}
	p.pending = append(p.pending, buf[:n]...)
	return len(p.pending), nil
}

func (p *bugstPort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.port.Drain()
}

func (p *bugstPort) FlushInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.pending = nil
	return p.port.ResetInputBuffer()
}
