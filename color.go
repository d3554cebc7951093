package indicator

import (
	"fmt"
	"strings"
)

// Color is the state shown by the indicator light.
type Color int

const (
	Green Color = iota
	Red
	Orange
)

func (c Color) String() string {
	switch c {
	case Green:
		return "green"
	case Red:
		return "red"
	case Orange:
		return "orange"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// ParseColor accepts a colour name or its wire digit.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green", "0":
		return Green, nil
	case "red", "1":
		return Red, nil
	case "orange", "2":
		return Orange, nil
	default:
		return Green, fmt.Errorf("unknown color %q (valid: green, red, orange)", s)
	}
}

// Mode selects which commands the firmware understands.
type Mode int

const (
	// ModeTwoState is green/red only.
	ModeTwoState Mode = iota
	// ModeLegacy adds orange and the pulse effect.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeTwoState:
		return "two-state"
	case ModeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the configuration value of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "two-state", "twostate", "2":
		return ModeTwoState, nil
	case "legacy", "three-state", "3":
		return ModeLegacy, nil
	default:
		return ModeTwoState, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Supports reports whether cmd may be sent in this mode.
func (m Mode) Supports(cmd Command) bool {
	if m == ModeLegacy {
		return true
	}
	return !cmd.pulse && cmd.color != Orange
}

// Command is either SetColor(c) or Pulse.
type Command struct {
	color Color
	pulse bool
}

// SetColorCommand builds the command that switches the light to c.
func SetColorCommand(c Color) Command {
	return Command{color: c}
}

// PulseCommand builds the pulse effect command.
func PulseCommand() Command {
	return Command{pulse: true}
}

// IsPulse reports whether the command is the pulse effect.
func (c Command) IsPulse() bool {
	return c.pulse
}

// Color returns the target colour of a SetColor command.
func (c Command) Color() Color {
	return c.color
}

// Payload returns the command bytes without the line terminator.
func (c Command) Payload() []byte {
	if c.pulse {
		return []byte("p")
	}
	switch c.color {
	case Red:
		return []byte("1")
	case Orange:
		return []byte("2")
	default:
		return []byte("0")
	}
}

// Wire returns the line-terminated bytes that reach the device.
func (c Command) Wire() []byte {
	return append(c.Payload(), lineTerminator)
}

func (c Command) String() string {
	if c.pulse {
		return "pulse"
	}
	return "set " + c.color.String()
}

// DetectionSignal is what the detection loop reports once per frame.
type DetectionSignal struct {
	// Detected is true when the detector saw anything at all, including
	// candidates filtered out before counting.
	Detected    bool
	ObjectCount uint
}

// ColorFor maps a detection signal to the colour for the given mode.
func ColorFor(sig DetectionSignal, mode Mode) Color {
	if sig.ObjectCount > 0 {
		return Red
	}
	if mode == ModeLegacy && sig.Detected {
		return Orange
	}
	return Green
}
