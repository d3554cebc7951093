package indicator

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrNotConnected       = errors.New("indicator is not connected")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrSessionClosed      = errors.New("indicator session is closed")
	ErrConnectInProgress  = errors.New("connection attempt already in progress")
	ErrUnsupportedCommand = errors.New("command not supported in this mode")
	ErrInvalidConfig      = errors.New("invalid indicator configuration")

	ErrUSBResetNotAvailable = errors.New("usbreset utility not found in PATH")
	ErrUSBInfoNotAvailable  = errors.New("USB bus/device numbers not available for port")
)

// IoError is an open, read or write failure at the transport.
type IoError struct {
	Op   string
	Port string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func ioError(op, port string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IoError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IoError{Op: op, Port: port, Err: err}
}
