package port

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
)

// classifyOpenError maps an OS error from opening a device onto the
// sentinel errors above, keeping the original cause in the chain.
func classifyOpenError(device string, err error) error {
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENXIO):
		return fmt.Errorf("open %s: %w: %w", device, ErrDeviceNotFound, err)
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM), errors.Is(err, os.ErrPermission):
		return fmt.Errorf("open %s: %w: %w", device, ErrPermissionDenied, err)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("open %s: %w: %w", device, ErrDeviceInUse, err)
	default:
		return fmt.Errorf("open %s: %w", device, err)
	}
}
