package port

import "time"

// Config holds the configuration for a serial port.
// Framing is fixed at 8N1 with no flow control, which is what the
// indicator firmware expects.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration // granularity 100ms (VTIME), 0 = non-blocking
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if err := ValidateBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithReadTimeout sets how long a single Read waits for the first byte.
// The kernel only supports tenths of a second up to 25.5s.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > 25500*time.Millisecond {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// readTimeoutTenths converts the read timeout to a VTIME value.
func (c Config) readTimeoutTenths() uint8 {
	return uint8(c.ReadTimeout / (100 * time.Millisecond))
}
