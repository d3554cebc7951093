// Package indicator drives a microcontroller-controlled indicator light over
// a serial link from a stream of detection results.
//
// A Controller turns per-frame detection signals into colour commands,
// suppresses repeats, retries failed writes and keeps the link alive across
// disconnects. A background watchdog drains device replies and treats a
// silent link as dead.
//
// # Basic Usage
//
//	ctrl, err := indicator.New(
//	    indicator.WithPort("/dev/ttyACM0"),
//	    indicator.WithBaudRate(9600),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ctrl.Connect(); err != nil {
//	    // keep running without the light
//	}
//	defer ctrl.Disconnect()
//
//	for frame := range frames {
//	    _ = ctrl.Report(indicator.DetectionSignal{
//	        Detected:    frame.Count > 0,
//	        ObjectCount: frame.Count,
//	    })
//	}
//
// # Wire Protocol
//
// One ASCII line per command, terminated by '\n':
//
//	0  green (clear)
//	1  red (detected)
//	2  orange (legacy mode only)
//	p  pulse the current colour (legacy mode only)
//
// Lines sent back by the device are logged and never parsed.
//
// # Connection Lifecycle
//
// Disconnected -> Connecting -> Connected. A failed write or an expired
// watchdog moves the session to Reconnecting; after MaxReconnectAttempts
// failed reopens it stays Failed until Connect is called again. Disconnect
// ends the session: every later call fails with ErrSessionClosed.
//
// # Error Handling
//
// Use errors.Is and errors.As:
//
//	if errors.Is(err, indicator.ErrReconnectExhausted) {
//	    // device is gone until an explicit Connect
//	}
//	var ioErr *indicator.IoError
//	if errors.As(err, &ioErr) {
//	    // transport failure after retries
//	}
//
// # Default Configuration
//
//   - BaudRate: 9600
//   - IOTimeout: 1s
//   - MaxReconnectAttempts: 3
//   - MaxRetries: 3
//   - WatchdogTimeout: 60s
//   - SettleDelay: 2s
//   - Mode: two-state (green/red)
package indicator
