// Package port is the byte-level serial port used by the indicator
// transport. Linux uses termios directly; other platforms go through
// go.bug.st/serial.
package port

// Port represents a serial port connection interface
type Port interface {
	Close() error
	// Read returns 0, nil when the read timeout elapses with no data.
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	// InputWaiting reports the number of bytes ready to be read.
	InputWaiting() (int, error)
	// Drain waits until all written output has been transmitted.
	Drain() error
	FlushInput() error
}

func applyOptions(opts []Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}
