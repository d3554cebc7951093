package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Overridable for tests
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
	reenumerateDelay = 2 * time.Second
)

// ResetUSBDevice performs a USB-level reset of the board behind portPath.
// This recovers a board whose firmware has hung, which a serial reopen
// cannot. It needs the usbreset utility (usbutils) and usually root.
//
// Returns ErrUSBResetNotAvailable when usbreset is missing and
// ErrUSBInfoNotAvailable when the port is not a USB device.
func ResetUSBDevice(ctx context.Context, portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}
	return resetUSB(ctx, info)
}

func resetUSB(ctx context.Context, info *PortInfo) error {
	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	usbPath, err := formatUSBPath(info.BusNumber, info.DeviceNumber)
	if err != nil {
		return err
	}

	if output, err := runCommand(ctx, "usbreset", usbPath); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	// The board needs a moment to re-enumerate.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(reenumerateDelay):
	}
	return nil
}

// ResetUSBDeviceBySerial resets the board with the given USB serial number,
// for when the device path changed after a reboot.
func ResetUSBDeviceBySerial(ctx context.Context, serialNumber string) error {
	infos, err := ListPortInfo(FilterUSB)
	if err != nil {
		return err
	}

	for _, info := range infos {
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(ctx, info.Path)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset is in PATH
func IsUSBResetAvailable() bool {
	_, err := lookPath("usbreset")
	return err == nil
}

// formatUSBPath renders bus and device as usbreset expects: BBB/DDD
func formatUSBPath(bus, device string) (string, error) {
	b, err := strconv.Atoi(bus)
	if err != nil {
		return "", fmt.Errorf("%w: bus %q", ErrUSBInfoNotAvailable, bus)
	}
	d, err := strconv.Atoi(device)
	if err != nil {
		return "", fmt.Errorf("%w: device %q", ErrUSBInfoNotAvailable, device)
	}
	return fmt.Sprintf("%03d/%03d", b, d), nil
}
