package indicator

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Indicator is what a detection loop reports to. Use a *Controller when a
// device is present and Headless when it is not.
type Indicator interface {
	Report(sig DetectionSignal) error
	Disconnect()
}

// Controller is the single entry point for driving the indicator light.
// It does not connect until Connect is called.
type Controller struct {
	cfg        Config
	sess       *session
	conn       *ConnectionManager
	dispatcher *CommandDispatcher
	log        zerolog.Logger
}

var _ Indicator = (*Controller)(nil)

// New creates a Controller with the given options
func New(opts ...Option) (*Controller, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = log.Logger
	}
	logger = logger.With().
		Str("component", "indicator").
		Str("port", cfg.Port).
		Logger()
	if cfg.DebugLogging {
		logger = logger.Level(zerolog.DebugLevel)
	}

	if cfg.Transport == nil {
		cfg.Transport = NewSerialTransport(cfg)
	}

	sess := newSession(cfg)
	conn := newConnectionManager(sess, cfg.Transport, cfg, cfg.Clock, logger)

	return &Controller{
		cfg:        cfg,
		sess:       sess,
		conn:       conn,
		dispatcher: newCommandDispatcher(conn, sess, cfg, logger),
		log:        logger,
	}, nil
}

// Config returns the effective configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// Connect opens the serial link. A failure is logged and returned; the
// controller stays usable and a later command or Connect may succeed.
func (c *Controller) Connect() error {
	return c.conn.Connect()
}

// Disconnect stops the watchdog and releases the device. Every call made
// afterwards fails with ErrSessionClosed.
func (c *Controller) Disconnect() {
	c.conn.Disconnect()
}

// IsConnected reports whether the link is up
func (c *Controller) IsConnected() bool {
	return c.conn.IsConnected()
}

// State returns the current connection state
func (c *Controller) State() ConnectionState {
	return c.sess.snapshot().State
}

// Status returns a snapshot of the session
func (c *Controller) Status() Status {
	return c.sess.snapshot()
}

// CheckLiveness verifies the device has spoken recently, reconnecting if
// it has not. It returns whether the link is usable afterwards.
func (c *Controller) CheckLiveness() bool {
	return c.conn.CheckLiveness()
}

// SetColor switches the light, skipping the write if it already shows c
func (c *Controller) SetColor(color Color) error {
	return c.dispatcher.SetColor(color)
}

// Pulse triggers the pulse effect (legacy mode only)
func (c *Controller) Pulse() error {
	return c.dispatcher.Pulse()
}

// Report maps one frame's detection result to a colour and sends it
func (c *Controller) Report(sig DetectionSignal) error {
	return c.SetColor(ColorFor(sig, c.cfg.Mode))
}

// Headless is the Indicator used when no device is available. Every
// report is accepted and discarded.
type Headless struct{}

var _ Indicator = Headless{}

func (Headless) Report(DetectionSignal) error { return nil }

func (Headless) Disconnect() {}
